package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/events"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultPageLimit       = 50
	defaultMaxPages        = 5
)

// ConvoLister fetches one conversation-list page. An empty cursor requests
// the first page.
type ConvoLister interface {
	ListConvos(ctx context.Context, cursor string, limit int) (chat.Page, error)
}

// RefresherConfig customizes refresher behavior.
type RefresherConfig struct {
	AccountDID string
	Store      *chat.ListStore
	Lister     ConvoLister
	Bus        bus.MessageBus
	Interval   time.Duration
	PageLimit  int
	MaxPages   int
	Logger     *slog.Logger
}

// Refresher keeps the account's conversation-list snapshot fresh: a full
// refetch on a fixed interval, plus an immediate one whenever the snapshot
// goes stale. Failed refreshes leave the last good snapshot in place.
type Refresher struct {
	accountDID string
	store      *chat.ListStore
	lister     ConvoLister
	bus        bus.MessageBus
	interval   time.Duration
	pageLimit  int
	maxPages   int
	logger     *slog.Logger

	startOnce sync.Once
}

func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		accountDID: cfg.AccountDID,
		store:      cfg.Store,
		lister:     cfg.Lister,
		bus:        cfg.Bus,
		interval:   interval,
		pageLimit:  pageLimit,
		maxPages:   maxPages,
		logger:     logger,
	}
}

func (r *Refresher) Start(ctx context.Context) {
	if r == nil || r.store == nil || r.lister == nil {
		return
	}

	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

func (r *Refresher) run(ctx context.Context) {
	r.logger.Info("refresher started", "account", r.accountDID, "interval", r.interval.String())

	var changes bus.Subscription
	if r.bus != nil {
		changes = r.bus.Subscribe(events.TopicConvoListChanged)
		defer r.bus.Unsubscribe(changes, events.TopicConvoListChanged)
	}

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("refresh conversation list", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")

			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("refresh conversation list", "error", err)
			}
		case raw, ok := <-changes:
			if !ok {
				return
			}
			if _, ok := raw.(events.ConvoListChanged); !ok {
				continue
			}
			if !r.store.Stale(chat.ListKey(r.accountDID)) {
				continue
			}
			r.logger.Debug("snapshot stale, refreshing early")
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("refresh conversation list", "error", err)
			}
		}
	}
}

// Refresh refetches the whole conversation list page by page and installs it
// as the new snapshot. A result that arrives after the cache was invalidated
// is discarded by the store and reported as success.
func (r *Refresher) Refresh(ctx context.Context) error {
	key := chat.ListKey(r.accountDID)
	gen := r.store.BeginFetch(key)
	r.publishStatus(events.SyncStateRefreshing, "", 0, 0)

	var pages []chat.Page
	cursor := ""
	for len(pages) < r.maxPages {
		page, err := r.lister.ListConvos(ctx, cursor, r.pageLimit)
		if err != nil {
			r.store.FailFetch(key, gen)
			r.publishStatus(events.SyncStateFailed, err.Error(), 0, 0)

			return fmt.Errorf("list convos: %w", err)
		}
		pages = append(pages, page)
		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	if !r.store.Replace(key, gen, pages) {
		r.logger.Debug("refresh result discarded", "key", key)

		return nil
	}

	convos := 0
	for _, page := range pages {
		convos += len(page.Convos)
	}
	r.publishStatus(events.SyncStateIdle, "", convos, len(pages))
	r.logger.Debug("conversation list refreshed", "convos", convos, "pages", len(pages))

	return nil
}

func (r *Refresher) publishStatus(state events.SyncState, errText string, convos, pages int) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.TopicSyncStatus, events.SyncStatus{
		State:      state,
		AccountDID: r.accountDID,
		Err:        errText,
		Convos:     convos,
		Pages:      pages,
		Timestamp:  time.Now(),
	})
}
