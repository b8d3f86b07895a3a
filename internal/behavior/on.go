package behavior

import (
	"context"

	"github.com/getseabird/questlog/internal/pubsub"
	"github.com/imkira/go-observer/v2"
)

// OnChange calls f through dispatch whenever prop changes, until ctx is done.
func OnChange[T any](ctx context.Context, prop observer.Property[T], dispatch pubsub.Dispatcher, f func(T)) {
	stream := prop.Observe()
	go func() {
		for {
			select {
			case <-stream.Changes():
				value := stream.Next()
				dispatch(func() {
					f(value)
				})
			case <-ctx.Done():
				return
			}
		}
	}()
}
