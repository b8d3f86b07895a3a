package api

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
)

type Preferences struct {
	ColorScheme  adw.ColorScheme
	Account      Account
	PollInterval time.Duration
	// MetricsAddr enables a Prometheus endpoint, e.g. "127.0.0.1:9464".
	MetricsAddr string
}

type Account struct {
	UserID   string
	APIToken string
	BaseURL  string
}

func (a Account) Valid() bool {
	return a.UserID != "" && a.APIToken != ""
}

// PrefsPath is overridden in tests.
var PrefsPath = func() string {
	cd, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	return path.Join(cd, "questlog", "prefs.json")
}

func LoadPreferences() (*Preferences, error) {
	var prefs Preferences
	if _, err := os.Stat(PrefsPath()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else {
		f, err := os.Open(PrefsPath())
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&prefs); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("HABITICA_USER_ID"); v != "" {
		prefs.Account.UserID = v
	}
	if v := os.Getenv("HABITICA_API_TOKEN"); v != "" {
		prefs.Account.APIToken = v
	}
	if v := os.Getenv("HABITICA_BASE_URL"); v != "" {
		prefs.Account.BaseURL = v
	}
	prefs.Defaults()

	return &prefs, nil
}

func (p *Preferences) Defaults() {
	if p.Account.BaseURL == "" {
		p.Account.BaseURL = DefaultBaseURL
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
}

func (p *Preferences) Save() error {
	if err := os.MkdirAll(path.Dir(PrefsPath()), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(PrefsPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(p)
}
