package chat

import "context"

type ConvoRepository interface {
	ReplaceAccount(ctx context.Context, accountDID string, convos []*ConvoSummary) error
	ListByAccount(ctx context.Context, accountDID string) ([]*ConvoSummary, error)
	Accounts(ctx context.Context) ([]string, error)
	DeleteAccount(ctx context.Context, accountDID string) error
}

// WriteQueue serializes persistence writes from async store changes.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}
