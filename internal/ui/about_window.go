package ui

import (
	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

type AboutWindow struct {
	*adw.AboutWindow
}

func NewAboutWindow(parent *gtk.Window, version string) *AboutWindow {
	w := AboutWindow{adw.NewAboutWindow()}
	w.SetApplicationName(ApplicationName)
	w.SetApplicationIcon("avatar-default-symbolic")
	w.SetVersion(version)
	w.SetTransientFor(parent)
	w.SetComments("A desktop companion for your Habitica character.")
	w.SetWebsite("https://github.com/getseabird/questlog")
	w.SetIssueURL("https://github.com/getseabird/questlog/issues")
	w.SetLicenseType(gtk.LicenseMPL20)
	return &w
}
