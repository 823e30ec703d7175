package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/chatapi"
	"github.com/hipstersmoothie/social-app/internal/events"
)

const defaultLogPollInterval = 10 * time.Second

// LogTailer fetches conversation log entries after cursor.
type LogTailer interface {
	GetLog(ctx context.Context, cursor string) ([]chatapi.LogEvent, string, error)
}

// LogPollerConfig customizes log poller behavior.
type LogPollerConfig struct {
	AccountDID string
	Tailer     LogTailer
	Bus        bus.MessageBus
	Interval   time.Duration
	Logger     *slog.Logger
}

// LogPoller tails the account's conversation log and republishes each entry
// as a typed bus event. The first successful poll only advances the cursor,
// so history before startup is not replayed as fresh activity.
type LogPoller struct {
	accountDID string
	tailer     LogTailer
	bus        bus.MessageBus
	interval   time.Duration
	logger     *slog.Logger

	cursor string
	primed bool

	startOnce sync.Once
}

func NewLogPoller(cfg LogPollerConfig) *LogPoller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultLogPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LogPoller{
		accountDID: cfg.AccountDID,
		tailer:     cfg.Tailer,
		bus:        cfg.Bus,
		interval:   interval,
		logger:     logger,
	}
}

func (p *LogPoller) Start(ctx context.Context) {
	if p == nil || p.tailer == nil || p.bus == nil {
		return
	}

	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

func (p *LogPoller) run(ctx context.Context) {
	p.logger.Info("log poller started", "account", p.accountDID, "interval", p.interval.String())

	if err := p.poll(ctx); err != nil {
		p.logger.Warn("tail conversation log", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("log poller stopped")

			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				p.logger.Warn("tail conversation log", "error", err)
			}
		}
	}
}

func (p *LogPoller) poll(ctx context.Context) error {
	entries, cursor, err := p.tailer.GetLog(ctx, p.cursor)
	if err != nil {
		return fmt.Errorf("get convo log: %w", err)
	}
	if cursor != "" {
		p.cursor = cursor
	}

	if !p.primed {
		p.primed = true
		p.logger.Debug("log cursor primed", "entries_skipped", len(entries))

		return nil
	}

	for _, entry := range entries {
		p.publishEntry(entry)
	}

	return nil
}

func (p *LogPoller) publishEntry(entry chatapi.LogEvent) {
	switch entry.Kind {
	case chatapi.LogKindMessageCreated:
		if entry.Message == nil {
			return
		}
		p.bus.Publish(events.TopicMessageCreated, chat.MessageCreated{
			AccountDID: p.accountDID,
			ConvoID:    entry.ConvoID,
			Message:    entry.Message,
		})
	case chatapi.LogKindMessageDeleted:
		if entry.Message == nil {
			return
		}
		p.bus.Publish(events.TopicMessageDeleted, chat.MessageDeleted{
			AccountDID: p.accountDID,
			ConvoID:    entry.ConvoID,
			MessageID:  entry.Message.ID,
		})
	case chatapi.LogKindConvoRead:
		p.bus.Publish(events.TopicConvoRead, chat.ConvoRead{
			AccountDID: p.accountDID,
			ConvoID:    entry.ConvoID,
		})
	case chatapi.LogKindConvoCreated:
		p.bus.Publish(events.TopicConvoCreated, chat.ConvoCreated{
			AccountDID: p.accountDID,
			ConvoID:    entry.ConvoID,
		})
	default:
		p.logger.Debug("skipping unhandled log entry", "convo_id", entry.ConvoID)
	}
}
