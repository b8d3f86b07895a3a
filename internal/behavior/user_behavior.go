package behavior

import (
	"context"
	"sync"

	"github.com/getseabird/questlog/api"
	"github.com/getseabird/questlog/internal/errorhandler"
	"github.com/getseabird/questlog/internal/metrics"
	"github.com/getseabird/questlog/internal/pubsub"
	"k8s.io/klog/v2"
)

// UserBehavior adapts a UserRepository to UI state. Snapshots are published
// to the User property through the dispatcher; updates are fire-and-forget.
// Failures never reach the caller, they go to the error handler.
type UserBehavior struct {
	repo     api.UserRepository
	dispatch pubsub.Dispatcher
	handle   errorhandler.Func
	metrics  metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	load sync.Once
	user pubsub.Property[*api.User]

	mutex  sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type UserOption func(*UserBehavior)

func WithDispatcher(dispatch pubsub.Dispatcher) UserOption {
	return func(b *UserBehavior) {
		b.dispatch = dispatch
	}
}

func WithErrorHandler(handle errorhandler.Func) UserOption {
	return func(b *UserBehavior) {
		b.handle = handle
	}
}

func WithMetrics(rec metrics.Recorder) UserOption {
	return func(b *UserBehavior) {
		b.metrics = rec
	}
}

func NewUserBehavior(repo api.UserRepository, opts ...UserOption) *UserBehavior {
	ctx, cancel := context.WithCancel(context.Background())
	b := UserBehavior{
		repo:     repo,
		dispatch: pubsub.Immediate,
		metrics:  metrics.Nop,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.handle == nil {
		b.handle = errorhandler.Empty(klog.Background().WithName("user"), b.metrics)
	}
	return &b
}

// User returns the latest snapshot holder. Its value is nil until the first
// snapshot arrives. The first call subscribes to the repository.
func (b *UserBehavior) User() pubsub.Property[*api.User] {
	b.Load()
	return b.user
}

// Load subscribes to the repository. Only the first call has an effect.
func (b *UserBehavior) Load() {
	b.load.Do(func() {
		b.user = pubsub.NewProperty[*api.User](nil)
		b.spawn("watch", func(ctx context.Context) error {
			return b.repo.WatchUser(ctx, func(user *api.User) {
				b.dispatch(func() {
					if b.isClosed() {
						return
					}
					b.metrics.RecordSnapshot()
					b.user.Pub(user)
				})
			})
		})
	})
}

// OnceUser calls fn with the next snapshot only.
func (b *UserBehavior) OnceUser(ctx context.Context, fn func(*api.User)) {
	b.User().Once(ctx, fn)
}

// UpdateUser asks the repository to set path to value. The User property
// changes only once the repository pushes the updated snapshot.
func (b *UserBehavior) UpdateUser(path string, value any) {
	b.metrics.RecordUpdate(path)
	b.spawn("update", func(ctx context.Context) error {
		return b.repo.UpdateUser(ctx, path, value)
	})
}

func (b *UserBehavior) IsFainted() bool {
	user := b.User().Value()
	return user != nil && user.Stats.HP == 0
}

func (b *UserBehavior) IsInParty() bool {
	user := b.User().Value()
	return user != nil && user.HasParty()
}

// Close releases the repository and waits for every subscription and update
// to return. Must not be called from inside a repository callback.
func (b *UserBehavior) Close() {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return
	}
	b.closed = true
	b.mutex.Unlock()

	if err := b.repo.Close(); err != nil {
		b.handle("close", err)
	}
	b.cancel()
	b.wg.Wait()
}

func (b *UserBehavior) isClosed() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.closed
}

func (b *UserBehavior) spawn(op string, fn func(context.Context) error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fn(b.ctx); err != nil {
			b.handle(op, err)
		}
	}()
}
