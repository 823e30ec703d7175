package chat

import (
	"context"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/events"
)

// StartPersistenceProjection mirrors list store changes into the local cache.
// Every change signal rewrites the flattened list of each populated account;
// accounts that disappear from the store (sign-out) get their rows dropped.
func StartPersistenceProjection(ctx context.Context, b bus.MessageBus, store *ListStore, queue WriteQueue, repo ConvoRepository) {
	sub := b.Subscribe(events.TopicConvoListChanged)

	go func() {
		defer b.Unsubscribe(sub, events.TopicConvoListChanged)
		known := make(map[string]bool)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub:
				if !ok {
					return
				}
				current := make(map[string]bool)
				for _, key := range store.Keys() {
					accountDID := AccountFromListKey(key)
					if accountDID == "" {
						continue
					}
					current[accountDID] = true
					convos := store.Convos(key)
					queue.Enqueue("replace_account_convos", func(writeCtx context.Context) error {
						return repo.ReplaceAccount(writeCtx, accountDID, convos)
					})
				}
				for accountDID := range known {
					if current[accountDID] {
						continue
					}
					queue.Enqueue("delete_account_convos", func(writeCtx context.Context) error {
						return repo.DeleteAccount(writeCtx, accountDID)
					})
				}
				known = current
			}
		}
	}()
}
