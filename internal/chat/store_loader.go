package chat

import (
	"context"
	"fmt"
)

// LoadStoreFromRepository warm-starts the list store from the local cache.
// Each account comes back as a single-page snapshot in the stale state, so
// the first refresh replaces it with live data.
func LoadStoreFromRepository(ctx context.Context, store *ListStore, repo ConvoRepository) error {
	accounts, err := repo.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load cached accounts: %w", err)
	}
	for _, accountDID := range accounts {
		convos, err := repo.ListByAccount(ctx, accountDID)
		if err != nil {
			return fmt.Errorf("load cached convos for %s: %w", accountDID, err)
		}
		store.Restore(ListKey(accountDID), convos)
	}

	return nil
}
