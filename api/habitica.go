package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/zmwangx/debounce"
	"golang.org/x/time/rate"
	"k8s.io/client-go/util/flowcontrol"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
)

const (
	DefaultBaseURL      = "https://habitica.com"
	DefaultPollInterval = time.Minute
	ClientName          = "Questlog"

	userPath = "/api/v3/user"
	watchKey = "user"
)

type HabiticaOptions struct {
	BaseURL      string
	UserID       string
	APIToken     string
	PollInterval time.Duration
	HTTPClient   *http.Client
	// Limiter throttles every request. Habitica asks third-party clients to
	// stay below 30 requests per minute.
	Limiter *rate.Limiter
	Clock   clock.WithTicker
	Cache   *SnapshotCache
	Logger  logr.Logger
}

func (o *HabiticaOptions) Defaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(rate.Every(2*time.Second), 5)
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger.GetSink() == nil {
		o.Logger = klog.Background().WithName("habitica")
	}
}

// Habitica is a UserRepository backed by the Habitica v3 REST API. Snapshots
// are polled, and a refetch is scheduled after every successful update.
type Habitica struct {
	opts    HabiticaOptions
	log     logr.Logger
	refresh func()

	mutex  sync.Mutex
	kick   chan struct{}
	done   chan struct{}
	closed sync.Once
}

func NewHabitica(opts HabiticaOptions) (*Habitica, error) {
	if opts.UserID == "" || opts.APIToken == "" {
		return nil, errors.New("habitica: user id and api token are required")
	}
	opts.Defaults()

	h := Habitica{
		opts: opts,
		log:  opts.Logger,
		kick: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.refresh, _ = debounce.Debounce(h.signalRefresh, 500*time.Millisecond, debounce.WithMaxWait(2*time.Second))

	return &h, nil
}

func (h *Habitica) WatchUser(ctx context.Context, fn func(*User)) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}

	ctx, cancel := h.withDone(ctx)
	defer cancel()

	delivered := false
	if h.opts.Cache != nil {
		user, err := h.opts.Cache.Load()
		if err != nil {
			h.log.V(2).Info("ignoring cached user", "err", err)
		} else if user != nil {
			fn(user)
			delivered = true
		}
	}

	backoff := flowcontrol.NewBackOff(time.Second, 5*time.Minute)
	ticker := h.opts.Clock.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	for {
		refresh := h.refreshed()
		tick := ticker.C()
		var retry <-chan time.Time

		user, err := h.fetchUser(ctx)
		switch {
		case err == nil:
			backoff.Reset(watchKey)
			h.store(user)
			fn(user)
			delivered = true
		case ctx.Err() != nil:
		case !retryable(err):
			return err
		default:
			backoff.Next(watchKey, h.opts.Clock.Now())
			delay := backoff.Get(watchKey)
			h.log.Info("fetching user failed, retrying", "err", err, "delay", delay)
			retry = h.opts.Clock.After(delay)
			tick = nil
		}

		select {
		case <-ctx.Done():
			if !delivered {
				return ErrNoUser
			}
			return nil
		case <-tick:
		case <-retry:
		case <-refresh:
		}
	}
}

func (h *Habitica) UpdateUser(ctx context.Context, path string, value any) error {
	if path == "" {
		return errors.New("habitica: empty field path")
	}
	select {
	case <-h.done:
		return ErrClosed
	default:
	}

	if err := h.do(ctx, http.MethodPut, userPath, map[string]any{path: value}, nil); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	h.refresh()
	return nil
}

// Close stops every running watch. It is safe to call more than once.
func (h *Habitica) Close() error {
	h.closed.Do(func() {
		close(h.done)
		h.opts.HTTPClient.CloseIdleConnections()
	})
	return nil
}

func (h *Habitica) fetchUser(ctx context.Context) (*User, error) {
	var user User
	if err := h.do(ctx, http.MethodGet, userPath, nil, &user); err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &user, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (h *Habitica) do(ctx context.Context, method, path string, body any, out any) error {
	if err := h.opts.Limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.opts.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-user", h.opts.UserID)
	req.Header.Set("x-api-key", h.opts.APIToken)
	req.Header.Set("x-client", h.opts.UserID+"-"+ClientName)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := h.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		if res.StatusCode >= 300 {
			return &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	if res.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: res.StatusCode, Code: env.Error, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (h *Habitica) store(user *User) {
	if h.opts.Cache == nil {
		return
	}
	if err := h.opts.Cache.Save(user); err != nil {
		h.log.Error(err, "caching user")
	}
}

func (h *Habitica) withDone(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (h *Habitica) refreshed() <-chan struct{} {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.kick
}

func (h *Habitica) signalRefresh() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	close(h.kick)
	h.kick = make(chan struct{})
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
