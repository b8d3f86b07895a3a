package behavior

import (
	"context"
	"errors"

	"github.com/getseabird/questlog/api"
	"github.com/getseabird/questlog/internal/errorhandler"
	"github.com/getseabird/questlog/internal/metrics"
	"github.com/getseabird/questlog/internal/pubsub"
	"github.com/go-logr/logr"
	"github.com/imkira/go-observer/v2"
	"k8s.io/klog/v2"
)

var ErrNoAccount = errors.New("no Habitica account configured")

// Behavior is the application-wide state. It creates the per-window
// behaviors and hands them their dependencies.
type Behavior struct {
	Preferences observer.Property[api.Preferences]
	Dispatch    pubsub.Dispatcher
	Metrics     metrics.Recorder
	Log         logr.Logger
}

func NewBehavior(ctx context.Context, dispatch pubsub.Dispatcher, rec metrics.Recorder) (*Behavior, error) {
	prefs, err := api.LoadPreferences()
	if err != nil {
		return nil, err
	}

	b := Behavior{
		Preferences: observer.NewProperty(*prefs),
		Dispatch:    dispatch,
		Metrics:     rec,
		Log:         klog.Background(),
	}

	OnChange(ctx, b.Preferences, pubsub.Immediate, func(p api.Preferences) {
		if err := p.Save(); err != nil {
			klog.Errorf("saving preferences: %v", err)
		}
	})

	return &b, nil
}

// NewUserBehavior connects to the configured account. The caller owns the
// result and must Close it.
func (b *Behavior) NewUserBehavior() (*UserBehavior, error) {
	prefs := b.Preferences.Value()
	if !prefs.Account.Valid() {
		return nil, ErrNoAccount
	}

	cache, err := api.NewSnapshotCache()
	if err != nil {
		klog.Warningf("user cache disabled: %v", err)
	}

	repo, err := api.NewHabitica(api.HabiticaOptions{
		BaseURL:      prefs.Account.BaseURL,
		UserID:       prefs.Account.UserID,
		APIToken:     prefs.Account.APIToken,
		PollInterval: prefs.PollInterval,
		Cache:        cache,
		Logger:       b.Log.WithName("habitica"),
	})
	if err != nil {
		return nil, err
	}

	return b.newUserBehavior(repo), nil
}

func (b *Behavior) newUserBehavior(repo api.UserRepository) *UserBehavior {
	return NewUserBehavior(repo,
		WithDispatcher(b.Dispatch),
		WithMetrics(b.Metrics),
		WithErrorHandler(errorhandler.Empty(b.Log.WithName("user"), b.Metrics)),
	)
}
