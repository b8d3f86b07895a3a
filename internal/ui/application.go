package ui

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gio/v2"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/getseabird/questlog/api"
	"github.com/getseabird/questlog/internal/behavior"
	"github.com/getseabird/questlog/internal/metrics"
	"github.com/getseabird/questlog/internal/style"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"
)

const ApplicationName = "Questlog"

type Application struct {
	*adw.Application
	version  string
	behavior *behavior.Behavior
	cancel   context.CancelFunc
}

// Dispatch runs fn on the GTK main loop.
func Dispatch(fn func()) {
	glib.IdleAdd(fn)
}

func NewApplication(version string) (*Application, error) {
	gtk.Init()

	switch runtime.GOOS {
	case "windows":
		os.Setenv("GTK_CSD", "0")
	case "darwin":
		gtk.SettingsGetDefault().SetObjectProperty("gtk-decoration-layout", "close,minimize,maximize")
	}

	ctx, cancel := context.WithCancel(context.Background())

	registry := prometheus.NewRegistry()
	b, err := behavior.NewBehavior(ctx, Dispatch, metrics.NewCollector(registry))
	if err != nil {
		cancel()
		return nil, err
	}

	if addr := b.Preferences.Value().MetricsAddr; addr != "" {
		go func() {
			if err := http.ListenAndServe(addr, metrics.Handler(registry)); err != nil && !errors.Is(err, http.ErrServerClosed) {
				klog.Errorf("metrics endpoint: %v", err)
			}
		}()
	}

	adw.StyleManagerGetDefault().SetColorScheme(b.Preferences.Value().ColorScheme)
	behavior.OnChange(ctx, b.Preferences, Dispatch, func(p api.Preferences) {
		adw.StyleManagerGetDefault().SetColorScheme(p.ColorScheme)
	})

	style.Load()

	a := Application{
		Application: adw.NewApplication("dev.skynomads.Questlog", gio.ApplicationFlagsNone),
		version:     version,
		behavior:    b,
		cancel:      cancel,
	}

	a.ConnectActivate(func() {
		a.open()
	})

	return &a, nil
}

// open shows the user window, or asks for credentials first.
func (a *Application) open() {
	app := &a.Application.Application
	if !a.behavior.Preferences.Value().Account.Valid() {
		NewAccountWindow(app, a.behavior, a.open).Present()
		return
	}

	user, err := a.behavior.NewUserBehavior()
	if err != nil {
		w := NewAccountWindow(app, a.behavior, a.open)
		w.Present()
		showErrorDialog(w.window(), "Could not connect", err)
		return
	}
	NewUserWindow(app, user, a.version).Present()
}

func (a *Application) Run() {
	code := a.Application.Run(os.Args)
	a.cancel()
	if code > 0 {
		os.Exit(code)
	}
}
