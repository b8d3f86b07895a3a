package ui

import (
	"errors"
	"strings"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/getseabird/questlog/internal/behavior"
)

// AccountWindow asks for the Habitica API credentials.
type AccountWindow struct {
	*adw.ApplicationWindow
	behavior *behavior.Behavior
}

func NewAccountWindow(app *gtk.Application, b *behavior.Behavior, done func()) *AccountWindow {
	w := AccountWindow{
		ApplicationWindow: adw.NewApplicationWindow(app),
		behavior:          b,
	}
	w.SetTitle(ApplicationName)
	w.SetDefaultSize(480, 420)

	box := gtk.NewBox(gtk.OrientationVertical, 0)
	box.Append(adw.NewHeaderBar())
	w.SetContent(box)

	page := adw.NewPreferencesPage()
	page.SetVExpand(true)
	box.Append(page)

	group := adw.NewPreferencesGroup()
	group.SetTitle("Habitica Account")
	group.SetDescription("Find your User ID and API Token under Settings → API on habitica.com.")
	page.Add(group)

	account := b.Preferences.Value().Account

	userID := adw.NewEntryRow()
	userID.SetTitle("User ID")
	userID.SetText(account.UserID)
	group.Add(userID)

	token := adw.NewPasswordEntryRow()
	token.SetTitle("API Token")
	token.SetText(account.APIToken)
	group.Add(token)

	server := adw.NewEntryRow()
	server.SetTitle("Server")
	server.SetText(account.BaseURL)
	group.Add(server)

	save := gtk.NewButton()
	save.SetLabel("Connect")
	save.SetHAlign(gtk.AlignCenter)
	save.SetMarginTop(24)
	save.AddCSSClass("pill")
	save.AddCSSClass("suggested-action")
	save.ConnectClicked(func() {
		prefs := w.behavior.Preferences.Value()
		prefs.Account.UserID = strings.TrimSpace(userID.Text())
		prefs.Account.APIToken = strings.TrimSpace(token.Text())
		prefs.Account.BaseURL = strings.TrimSpace(server.Text())
		prefs.Defaults()
		if !prefs.Account.Valid() {
			showErrorDialog(w.window(), "Missing credentials", errors.New("user ID and API token are required"))
			return
		}
		w.behavior.Preferences.Update(prefs)
		done()
		w.Close()
	})
	group.Add(save)

	return &w
}

func (w *AccountWindow) window() *gtk.Window {
	return &w.ApplicationWindow.ApplicationWindow.Window
}
