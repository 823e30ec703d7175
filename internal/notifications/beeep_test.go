package notifications

import (
	"io"
	"log/slog"
	"testing"
)

func TestDesktopSenderSend_SkipsEmptyPayloads(t *testing.T) {
	sender := NewDesktopSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Blank payloads return before reaching the desktop backend; anything else
	// would pop a real notification here.
	sender.Send(Payload{})
	sender.Send(Payload{Title: "   ", Content: "\t\n"})
}

func TestDesktopSenderSend_NilReceiver(t *testing.T) {
	var sender *DesktopSender
	sender.Send(Payload{Title: "ignored", Content: "ignored"})
}
