package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/events"
)

// BadgeServiceConfig customizes badge service behavior.
type BadgeServiceConfig struct {
	AccountDID string
	Store      *chat.ListStore
	Decider    chat.Decider
	Overlay    chat.ProfileOverlay
	Bus        bus.MessageBus
	// CurrentConvoID reports the conversation the user is looking at, which
	// is excluded from the count. Nil means none.
	CurrentConvoID func() string
	Logger         *slog.Logger
}

// BadgeService recomputes the unread badge after every cache change and
// publishes it when the value moves.
type BadgeService struct {
	accountDID     string
	store          *chat.ListStore
	decider        chat.Decider
	overlay        chat.ProfileOverlay
	bus            bus.MessageBus
	currentConvoID func() string
	logger         *slog.Logger

	mu      sync.RWMutex
	current chat.Badge
	known   bool

	startOnce sync.Once
}

func NewBadgeService(cfg BadgeServiceConfig) *BadgeService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BadgeService{
		accountDID:     cfg.AccountDID,
		store:          cfg.Store,
		decider:        cfg.Decider,
		overlay:        cfg.Overlay,
		bus:            cfg.Bus,
		currentConvoID: cfg.CurrentConvoID,
		logger:         logger,
	}
}

func (s *BadgeService) Start(ctx context.Context) {
	if s == nil || s.store == nil || s.bus == nil {
		return
	}

	s.startOnce.Do(func() {
		sub := s.bus.Subscribe(events.TopicConvoListChanged)

		go func() {
			defer s.bus.Unsubscribe(sub, events.TopicConvoListChanged)

			s.recompute()

			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-sub:
					if !ok {
						return
					}
					if _, ok := raw.(events.ConvoListChanged); !ok {
						continue
					}
					s.recompute()
				}
			}
		}()
	})
}

// Current returns the last computed badge. ok is false before the first
// recompute.
func (s *BadgeService) Current() (chat.Badge, bool) {
	if s == nil {
		return chat.Badge{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, s.known
}

func (s *BadgeService) recompute() {
	convos := s.store.Convos(chat.ListKey(s.accountDID))
	currentConvoID := ""
	if s.currentConvoID != nil {
		currentConvoID = s.currentConvoID()
	}
	badge := chat.CountUnread(convos, currentConvoID, s.accountDID, s.decider, s.overlay)

	s.mu.Lock()
	unchanged := s.known && badge == s.current
	s.current = badge
	s.known = true
	s.mu.Unlock()

	if unchanged {
		return
	}

	s.logger.Debug("unread badge changed", "count", badge.Count, "display", badge.Display)
	s.bus.Publish(events.TopicBadgeUpdated, events.BadgeUpdated{
		AccountDID: s.accountDID,
		Count:      badge.Count,
		Display:    badge.Display,
		Timestamp:  time.Now(),
	})
}
