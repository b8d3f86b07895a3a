package style

import (
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

const css = `
.fainted {
	color: @error_color;
	font-weight: bold;
}

progressbar.health > trough > progress {
	background-color: #f74e52;
}

progressbar.experience > trough > progress {
	background-color: #ffbe5d;
}

progressbar.mana > trough > progress {
	background-color: #50b5e9;
}
`

func Load() {
	provider := gtk.NewCSSProvider()
	provider.LoadFromData(css)
	gtk.StyleContextAddProviderForDisplay(gdk.DisplayGetDefault(), provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}
