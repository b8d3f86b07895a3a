package ui

import (
	"context"
	"fmt"
	"math"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/getseabird/questlog/api"
	"github.com/getseabird/questlog/internal/behavior"
)

type UserWindow struct {
	*adw.ApplicationWindow
	user   *behavior.UserBehavior
	ctx    context.Context
	cancel context.CancelFunc

	toasts     *adw.ToastOverlay
	status     *adw.StatusPage
	stats      *adw.PreferencesGroup
	health     *gtk.ProgressBar
	mana       *gtk.ProgressBar
	experience *gtk.ProgressBar
	fainted    *gtk.Label
	party      *adw.ActionRow
	gold       *adw.ActionRow
	rest       *gtk.Button
	sleeping   bool
}

func NewUserWindow(app *gtk.Application, user *behavior.UserBehavior, version string) *UserWindow {
	ctx, cancel := context.WithCancel(context.Background())
	w := UserWindow{
		ApplicationWindow: adw.NewApplicationWindow(app),
		user:              user,
		ctx:               ctx,
		cancel:            cancel,
	}
	w.SetTitle(ApplicationName)
	w.SetDefaultSize(480, 640)

	box := gtk.NewBox(gtk.OrientationVertical, 0)
	header := adw.NewHeaderBar()
	about := gtk.NewButton()
	about.SetIconName("help-about-symbolic")
	about.AddCSSClass("flat")
	about.ConnectClicked(func() {
		NewAboutWindow(&w.ApplicationWindow.ApplicationWindow.Window, version).Present()
	})
	header.PackEnd(about)
	box.Append(header)
	w.toasts = adw.NewToastOverlay()
	w.toasts.SetChild(box)
	w.SetContent(w.toasts)

	w.status = adw.NewStatusPage()
	w.status.SetIconName("avatar-default-symbolic")
	w.status.SetTitle("Loading…")
	w.status.SetVExpand(true)
	box.Append(w.status)

	content := gtk.NewBox(gtk.OrientationVertical, 12)
	w.status.SetChild(content)

	w.fainted = gtk.NewLabel("You have fainted. Rest up and check off your dailies.")
	w.fainted.AddCSSClass("fainted")
	w.fainted.SetWrap(true)
	w.fainted.SetVisible(false)
	content.Append(w.fainted)

	w.stats = adw.NewPreferencesGroup()
	w.stats.SetVisible(false)
	content.Append(w.stats)

	w.health = w.addBar("Health", "health")
	w.experience = w.addBar("Experience", "experience")
	w.mana = w.addBar("Mana", "mana")

	w.gold = adw.NewActionRow()
	w.gold.SetTitle("Gold")
	w.stats.Add(w.gold)

	w.party = adw.NewActionRow()
	w.party.SetTitle("Party")
	w.stats.Add(w.party)

	w.rest = gtk.NewButton()
	w.rest.SetHAlign(gtk.AlignCenter)
	w.rest.AddCSSClass("pill")
	w.rest.SetVisible(false)
	w.rest.ConnectClicked(w.toggleRest)
	content.Append(w.rest)

	w.user.OnceUser(w.ctx, func(u *api.User) {
		w.toasts.AddToast(adw.NewToast(fmt.Sprintf("Welcome back, %s", u.Profile.Name)))
	})
	w.user.User().Sub(w.ctx, w.update)

	w.ConnectCloseRequest(func() bool {
		w.cancel()
		w.user.Close()
		return false
	})

	return &w
}

func (w *UserWindow) addBar(title, class string) *gtk.ProgressBar {
	row := adw.NewActionRow()
	row.SetTitle(title)
	bar := gtk.NewProgressBar()
	bar.SetShowText(true)
	bar.SetVAlign(gtk.AlignCenter)
	bar.SetHExpand(true)
	bar.AddCSSClass(class)
	row.AddSuffix(bar)
	w.stats.Add(row)
	return bar
}

func (w *UserWindow) update(u *api.User) {
	if u == nil {
		return
	}

	w.status.SetTitle(u.Profile.Name)
	w.status.SetDescription(fmt.Sprintf("Level %d %s", u.Stats.Level, u.Stats.Class))
	w.stats.SetVisible(true)
	w.rest.SetVisible(true)

	setBar(w.health, u.Stats.HP, u.Stats.MaxHealth)
	setBar(w.experience, u.Stats.Exp, u.Stats.ToNextLevel)
	setBar(w.mana, u.Stats.MP, u.Stats.MaxMP)
	w.gold.SetSubtitle(fmt.Sprintf("%.2f", u.Stats.Gold))

	w.fainted.SetVisible(w.user.IsFainted())
	if w.user.IsInParty() {
		w.party.SetSubtitle("Questing with a party")
	} else {
		w.party.SetSubtitle("Not in a party")
	}

	w.sleeping = u.Preferences.Sleep
	if w.sleeping {
		w.rest.SetLabel("Check out of the Inn")
	} else {
		w.rest.SetLabel("Rest in the Inn")
	}
}

// toggleRest keeps the button disabled until the server confirms the change.
func (w *UserWindow) toggleRest() {
	w.rest.SetSensitive(false)
	w.user.OnceUser(w.ctx, func(*api.User) {
		w.rest.SetSensitive(true)
	})
	w.user.UpdateUser("preferences.sleep", !w.sleeping)
}

func setBar(bar *gtk.ProgressBar, value, max float64) {
	fraction := 0.0
	if max > 0 {
		fraction = math.Min(math.Max(value/max, 0), 1)
	}
	bar.SetFraction(fraction)
	bar.SetText(fmt.Sprintf("%.0f / %.0f", math.Ceil(value), max))
}
