package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/config"
	"github.com/hipstersmoothie/social-app/internal/events"
	"github.com/hipstersmoothie/social-app/internal/notifications"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	store         *chat.ListStore
	decider       chat.Decider
	accountDID    string
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger
}

func NewNotificationService(
	messageBus bus.MessageBus,
	store *chat.ListStore,
	decider chat.Decider,
	accountDID string,
	currentConfig func() config.AppConfig,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		store:         store,
		decider:       decider,
		accountDID:    accountDID,
		currentConfig: currentConfig,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	sub := s.bus.Subscribe(events.TopicMessageCreated)

	go func() {
		defer s.bus.Unsubscribe(sub, events.TopicMessageCreated)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				ev, ok := raw.(chat.MessageCreated)
				if !ok {
					continue
				}
				s.handleIncomingMessage(ev)
			}
		}
	}()
}

func (s *NotificationService) handleIncomingMessage(ev chat.MessageCreated) {
	if !s.notificationPrefs().IncomingMessage {
		return
	}
	if ev.AccountDID != s.accountDID || ev.Message == nil || ev.Message.Deleted {
		return
	}
	if ev.Message.SenderDID == s.accountDID {
		return
	}

	convo, ok := s.findConvo(ev.AccountDID, ev.ConvoID)
	if !ok {
		// Mute and block state cannot be checked until the convo is fetched.
		s.logger.Debug("skipping notification for unknown convo", "convo_id", ev.ConvoID)

		return
	}
	if convo.Muted {
		return
	}
	sender, ok := senderProfile(convo, ev.Message.SenderDID)
	if !ok || !sender.Known() {
		return
	}
	if s.decider == nil {
		return
	}
	decision, ok := s.decider.Decide(sender)
	if !ok || decision.Blocked || decision.Muted {
		return
	}

	title := strings.TrimSpace(sender.DisplayName)
	if title == "" {
		title = "@" + sender.Handle
	}
	body := strings.TrimSpace(ev.Message.Text)
	if body == "" {
		body = "(empty)"
	}

	s.send(notifications.Payload{
		Title:   title,
		Content: body,
	})
}

func (s *NotificationService) findConvo(accountDID, convoID string) (*chat.ConvoSummary, bool) {
	if s.store == nil {
		return nil, false
	}
	snapshot, _, ok := s.store.Get(chat.ListKey(accountDID))
	if !ok {
		return nil, false
	}

	return snapshot.Find(convoID)
}

func (s *NotificationService) notificationPrefs() config.NotificationConfig {
	cfg := config.Default()
	if s.currentConfig != nil {
		cfg = s.currentConfig()
		cfg.FillMissingDefaults()
	}

	return cfg.Notifications
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}

func senderProfile(convo *chat.ConvoSummary, senderDID string) (chat.Profile, bool) {
	if senderDID == "" {
		return chat.Profile{}, false
	}
	for _, member := range convo.Members {
		if member.DID == senderDID {
			return member, true
		}
	}

	return chat.Profile{}, false
}
