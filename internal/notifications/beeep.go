package notifications

import (
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

// DesktopSender delivers payloads as native desktop notifications.
type DesktopSender struct {
	logger *slog.Logger
}

func NewDesktopSender(logger *slog.Logger) *DesktopSender {
	return &DesktopSender{logger: logger}
}

func (s *DesktopSender) Send(notification Payload) {
	if s == nil {
		return
	}

	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}

	if err := beeep.Notify(title, content, ""); err != nil && s.logger != nil {
		s.logger.Warn("desktop notification failed", "error", err)
	}
}
