package behavior

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getseabird/questlog/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepo struct {
	watchFn  func(ctx context.Context, fn func(*api.User)) error
	updateFn func(ctx context.Context, path string, value any) error

	watches atomic.Int32
	closes  atomic.Int32
}

func (m *mockUserRepo) WatchUser(ctx context.Context, fn func(*api.User)) error {
	m.watches.Add(1)
	if m.watchFn != nil {
		return m.watchFn(ctx, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockUserRepo) UpdateUser(ctx context.Context, path string, value any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, path, value)
	}
	return nil
}

func (m *mockUserRepo) Close() error {
	m.closes.Add(1)
	return nil
}

// stream feeds snapshots to WatchUser and waits until each one was handed
// to the behavior.
type stream struct {
	users     chan *api.User
	delivered chan struct{}
}

func newStream() *stream {
	return &stream{users: make(chan *api.User), delivered: make(chan struct{})}
}

func (s *stream) watch(ctx context.Context, fn func(*api.User)) error {
	for {
		select {
		case user := <-s.users:
			fn(user)
			s.delivered <- struct{}{}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *stream) push(t *testing.T, user *api.User) {
	t.Helper()
	select {
	case s.users <- user:
	case <-time.After(time.Second):
		t.Fatal("stream not consumed")
	}
	<-s.delivered
}

type handled struct {
	mutex sync.Mutex
	ops   []string
	errs  []error
}

func (h *handled) handle(op string, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.ops = append(h.ops, op)
	h.errs = append(h.errs, err)
}

func (h *handled) len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.ops)
}

// queue mimics the main loop: dispatched functions wait until run is called.
type queue struct {
	mutex sync.Mutex
	fns   []func()
}

func (q *queue) dispatch(fn func()) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.fns = append(q.fns, fn)
}

func (q *queue) run() {
	q.mutex.Lock()
	fns := q.fns
	q.fns = nil
	q.mutex.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestUserReturnsSameHolder(t *testing.T) {
	repo := &mockUserRepo{}
	b := NewUserBehavior(repo)
	defer b.Close()

	first := b.User()
	second := b.User()
	b.Load()

	assert.Same(t, first, second)
	assert.Nil(t, first.Value())
	require.Eventually(t, func() bool { return repo.watches.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, repo.watches.Load())
}

func TestUserPublishesSnapshots(t *testing.T) {
	s := newStream()
	b := NewUserBehavior(&mockUserRepo{watchFn: s.watch})
	defer b.Close()

	var seen []string
	b.User().Sub(context.Background(), func(u *api.User) {
		if u != nil {
			seen = append(seen, u.Profile.Name)
		}
	})

	s.push(t, &api.User{Profile: api.UserProfile{Name: "a"}})
	s.push(t, &api.User{Profile: api.UserProfile{Name: "b"}})

	assert.Equal(t, "b", b.User().Value().Profile.Name)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestIsFainted(t *testing.T) {
	tests := []struct {
		name string
		user *api.User
		want bool
	}{
		{name: "no snapshot", user: nil, want: false},
		{name: "zero hp", user: &api.User{Stats: api.UserStats{HP: 0, MaxHealth: 50}}, want: true},
		{name: "fractional hp", user: &api.User{Stats: api.UserStats{HP: 0.4}}, want: false},
		{name: "full hp", user: &api.User{Stats: api.UserStats{HP: 50}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStream()
			b := NewUserBehavior(&mockUserRepo{watchFn: s.watch})
			defer b.Close()

			b.Load()
			if tt.user != nil {
				s.push(t, tt.user)
			}
			assert.Equal(t, tt.want, b.IsFainted())
		})
	}
}

func TestIsInParty(t *testing.T) {
	tests := []struct {
		name string
		user *api.User
		want bool
	}{
		{name: "no snapshot", user: nil, want: false},
		{name: "no party", user: &api.User{}, want: false},
		{name: "party", user: &api.User{Party: api.UserParty{ID: "f2d3"}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStream()
			b := NewUserBehavior(&mockUserRepo{watchFn: s.watch})
			defer b.Close()

			b.Load()
			if tt.user != nil {
				s.push(t, tt.user)
			}
			assert.Equal(t, tt.want, b.IsInParty())
		})
	}
}

func TestCloseStopsMutations(t *testing.T) {
	s := newStream()
	q := &queue{}
	repo := &mockUserRepo{watchFn: s.watch}
	b := NewUserBehavior(repo, WithDispatcher(q.dispatch))

	b.Load()
	first := &api.User{ID: "1"}
	s.push(t, first)
	q.run()
	require.Same(t, first, b.User().Value())

	s.push(t, &api.User{ID: "2"})
	b.Close()
	q.run()

	assert.Same(t, first, b.User().Value())
	assert.EqualValues(t, 1, repo.closes.Load())

	b.Close()
	assert.EqualValues(t, 1, repo.closes.Load())
}

func TestCloseCancelsWatch(t *testing.T) {
	done := make(chan struct{})
	h := &handled{}
	repo := &mockUserRepo{watchFn: func(ctx context.Context, fn func(*api.User)) error {
		defer close(done)
		<-ctx.Done()
		return ctx.Err()
	}}
	b := NewUserBehavior(repo, WithErrorHandler(h.handle))

	b.Load()
	b.Close()

	select {
	case <-done:
	default:
		t.Fatal("watch still running after Close")
	}
	assert.Equal(t, []error{context.Canceled}, h.errs)
}

func TestOnceUser(t *testing.T) {
	s := newStream()
	b := NewUserBehavior(&mockUserRepo{watchFn: s.watch})
	defer b.Close()

	var calls []string
	b.OnceUser(context.Background(), func(u *api.User) {
		calls = append(calls, u.ID)
	})
	s.push(t, &api.User{ID: "first"})
	s.push(t, &api.User{ID: "second"})

	assert.Equal(t, []string{"first"}, calls)
}

func TestUpdateUserForwardsRequest(t *testing.T) {
	type call struct {
		path  string
		value any
	}
	calls := make(chan call, 1)
	b := NewUserBehavior(&mockUserRepo{updateFn: func(ctx context.Context, path string, value any) error {
		calls <- call{path, value}
		return nil
	}})
	defer b.Close()

	b.UpdateUser("preferences.sleep", true)

	select {
	case c := <-calls:
		assert.Equal(t, "preferences.sleep", c.path)
		assert.Equal(t, true, c.value)
	case <-time.After(time.Second):
		t.Fatal("update not forwarded")
	}
}

func TestUpdateUserSwallowsFailure(t *testing.T) {
	h := &handled{}
	failure := errors.New("update failed")
	b := NewUserBehavior(
		&mockUserRepo{updateFn: func(ctx context.Context, path string, value any) error {
			return failure
		}},
		WithErrorHandler(h.handle),
	)

	assert.NotPanics(t, func() {
		b.UpdateUser("stats.hp", 10)
	})
	require.Eventually(t, func() bool { return h.len() == 1 }, time.Second, time.Millisecond)
	b.Close()

	assert.Equal(t, []string{"update"}, h.ops)
	assert.ErrorIs(t, h.errs[0], failure)
}

func TestUpdateUserWithDefaultHandler(t *testing.T) {
	b := NewUserBehavior(&mockUserRepo{updateFn: func(ctx context.Context, path string, value any) error {
		return api.ErrNoUser
	}})

	assert.NotPanics(t, func() {
		b.UpdateUser("stats.hp", 10)
		b.Close()
	})
}

func TestCloseWaitsForUpdates(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	b := NewUserBehavior(&mockUserRepo{updateFn: func(ctx context.Context, path string, value any) error {
		close(started)
		<-ctx.Done()
		finished.Store(true)
		return ctx.Err()
	}}, WithErrorHandler(func(string, error) {}))

	b.UpdateUser("preferences.sleep", false)
	<-started
	b.Close()

	assert.True(t, finished.Load())
}

func TestUpdateAfterCloseIsDropped(t *testing.T) {
	var calls atomic.Int32
	b := NewUserBehavior(&mockUserRepo{updateFn: func(ctx context.Context, path string, value any) error {
		calls.Add(1)
		return nil
	}})
	b.Close()

	b.UpdateUser("preferences.sleep", true)
	b.Load()

	assert.EqualValues(t, 0, calls.Load())
	assert.Nil(t, b.User().Value())
}

func TestWatchFailureIsSwallowed(t *testing.T) {
	h := &handled{}
	b := NewUserBehavior(&mockUserRepo{watchFn: func(ctx context.Context, fn func(*api.User)) error {
		return api.ErrNoUser
	}}, WithErrorHandler(h.handle))
	defer b.Close()

	assert.Nil(t, b.User().Value())
	require.Eventually(t, func() bool { return h.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"watch"}, h.ops)
	assert.False(t, b.IsFainted())
}
