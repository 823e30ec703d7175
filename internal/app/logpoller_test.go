package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/chatapi"
	"github.com/hipstersmoothie/social-app/internal/events"
)

type logBatch struct {
	entries []chatapi.LogEvent
	cursor  string
	err     error
}

type fakeTailer struct {
	mu      sync.Mutex
	script  []logBatch
	calls   int
	cursors []string
}

func (f *fakeTailer) GetLog(_ context.Context, cursor string) ([]chatapi.LogEvent, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, cursor)
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		return nil, "", nil
	}
	batch := f.script[idx]

	return batch.entries, batch.cursor, batch.err
}

func (f *fakeTailer) seenCursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.cursors...)
}

func createdEntry(convoID, messageID, text string) chatapi.LogEvent {
	return chatapi.LogEvent{
		Kind:    chatapi.LogKindMessageCreated,
		ConvoID: convoID,
		Message: &chat.LastMessage{
			ID:        messageID,
			Text:      text,
			SenderDID: "did:plc:bob",
			SentAt:    time.Now(),
		},
	}
}

func TestLogPoller_PrimesCursorBeforePublishing(t *testing.T) {
	logger := testLogger()
	messageBus := bus.New(logger)
	t.Cleanup(func() {
		messageBus.Close()
	})

	sub := messageBus.Subscribe(events.TopicMessageCreated)
	t.Cleanup(func() {
		messageBus.Unsubscribe(sub, events.TopicMessageCreated)
	})

	tailer := &fakeTailer{
		script: []logBatch{
			{entries: []chatapi.LogEvent{createdEntry("convo-1", "msg-old", "history")}, cursor: "c1"},
			{entries: []chatapi.LogEvent{createdEntry("convo-1", "msg-new", "fresh")}, cursor: "c2"},
		},
	}
	poller := NewLogPoller(LogPollerConfig{
		AccountDID: "did:plc:alice",
		Tailer:     tailer,
		Bus:        messageBus,
		Interval:   20 * time.Millisecond,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	select {
	case raw := <-sub:
		ev, ok := raw.(chat.MessageCreated)
		if !ok {
			t.Fatalf("expected MessageCreated payload, got %T", raw)
		}
		if ev.Message == nil || ev.Message.ID != "msg-new" {
			t.Fatalf("expected only post-priming entries to publish, got %+v", ev.Message)
		}
		if ev.AccountDID != "did:plc:alice" || ev.ConvoID != "convo-1" {
			t.Fatalf("unexpected event addressing: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a message created event")
	}

	cursors := tailer.seenCursors()
	if len(cursors) < 2 || cursors[0] != "" || cursors[1] != "c1" {
		t.Fatalf("expected cursor to advance after priming, got %v", cursors)
	}
}

func TestLogPoller_MapsEntryKindsToTypedEvents(t *testing.T) {
	logger := testLogger()
	messageBus := bus.New(logger)
	t.Cleanup(func() {
		messageBus.Close()
	})

	topics := []string{events.TopicMessageDeleted, events.TopicConvoRead, events.TopicConvoCreated}
	sub := messageBus.Subscribe(topics...)
	t.Cleanup(func() {
		messageBus.Unsubscribe(sub, topics...)
	})

	tailer := &fakeTailer{
		script: []logBatch{
			{cursor: "c1"},
			{
				entries: []chatapi.LogEvent{
					{
						Kind:    chatapi.LogKindMessageDeleted,
						ConvoID: "convo-2",
						Message: &chat.LastMessage{ID: "msg-7", Deleted: true},
					},
					{Kind: chatapi.LogKindConvoRead, ConvoID: "convo-3"},
					{Kind: chatapi.LogKindConvoCreated, ConvoID: "convo-4"},
					{Kind: chatapi.LogKindUnknown, ConvoID: "convo-5"},
				},
				cursor: "c2",
			},
		},
	}
	poller := NewLogPoller(LogPollerConfig{
		AccountDID: "did:plc:alice",
		Tailer:     tailer,
		Bus:        messageBus,
		Interval:   20 * time.Millisecond,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	var got []any
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case raw := <-sub:
			got = append(got, raw)
		case <-timeout:
			t.Fatalf("expected three typed events, got %d", len(got))
		}
	}

	deleted, ok := got[0].(chat.MessageDeleted)
	if !ok {
		t.Fatalf("expected MessageDeleted first, got %T", got[0])
	}
	if deleted.ConvoID != "convo-2" || deleted.MessageID != "msg-7" {
		t.Fatalf("unexpected deleted event: %+v", deleted)
	}

	read, ok := got[1].(chat.ConvoRead)
	if !ok {
		t.Fatalf("expected ConvoRead second, got %T", got[1])
	}
	if read.ConvoID != "convo-3" {
		t.Fatalf("unexpected read event: %+v", read)
	}

	created, ok := got[2].(chat.ConvoCreated)
	if !ok {
		t.Fatalf("expected ConvoCreated third, got %T", got[2])
	}
	if created.ConvoID != "convo-4" {
		t.Fatalf("unexpected created event: %+v", created)
	}

	select {
	case raw := <-sub:
		t.Fatalf("expected unknown log kinds to be dropped, got %+v", raw)
	case <-time.After(100 * time.Millisecond):
	}
}
