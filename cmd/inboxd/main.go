package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/time/rate"

	"github.com/hipstersmoothie/social-app/internal/app"
	"github.com/hipstersmoothie/social-app/internal/bus"
	"github.com/hipstersmoothie/social-app/internal/chat"
	"github.com/hipstersmoothie/social-app/internal/chatapi"
	"github.com/hipstersmoothie/social-app/internal/config"
	"github.com/hipstersmoothie/social-app/internal/events"
	"github.com/hipstersmoothie/social-app/internal/logging"
	"github.com/hipstersmoothie/social-app/internal/moderation"
	"github.com/hipstersmoothie/social-app/internal/notifications"
	"github.com/hipstersmoothie/social-app/internal/persistence"
	"github.com/hipstersmoothie/social-app/internal/session"
	"github.com/hipstersmoothie/social-app/internal/shadow"
)

const (
	writerQueueCapacity = 256
	sentryFlushTimeout  = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("run inboxd", "error", err)
		os.Exit(1)
	}
}

func run() error {
	tokenFile := flag.String("token-file", "", "access token file (overrides config)")
	once := flag.Bool("once", false, "refresh once, print the unread badge and exit")
	reset := flag.Bool("reset", false, "clear the local conversation cache and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		version := app.BuildVersionWithDate()
		if commit := app.BuildCommitShort(); commit != "" {
			version += " " + commit
		}
		fmt.Println("inboxd " + version)

		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(*tokenFile) != "" {
		cfg.Service.TokenFile = strings.TrimSpace(*tokenFile)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")
	logger.Info("starting inboxd", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	sentryEnabled := false
	if dsn := strings.TrimSpace(cfg.Telemetry.SentryDSN); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Release:          app.BuildVersion(),
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized", "release", app.BuildVersion())
			sentryEnabled = true
		}
	}
	defer func() {
		if sentryEnabled {
			sentry.Flush(sentryFlushTimeout)
		}
	}()

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close sqlite", "error", closeErr)
		}
	}()

	if *reset {
		if err := persistence.ClearDatabase(ctx, db); err != nil {
			return fmt.Errorf("clear database: %w", err)
		}
		logger.Info("local conversation cache cleared")

		return nil
	}

	if strings.TrimSpace(cfg.Service.TokenFile) == "" {
		return fmt.Errorf("missing token file: set --token-file or save service token_file in config")
	}
	sess, err := session.FromTokenFile(cfg.Service.TokenFile)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	logger.Info("session loaded", "did", sess.DID, "expires_at", sess.ExpiresAt)

	convoRepo := persistence.NewConvoRepo(db)
	cachedAccounts, err := convoRepo.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("load cached accounts: %w", err)
	}
	logger.Info("cached state", "accounts", len(cachedAccounts))

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	store := chat.NewListStore()
	if err := chat.LoadStoreFromRepository(ctx, store, convoRepo); err != nil {
		return fmt.Errorf("bootstrap store: %w", err)
	}
	store.Start(ctx, b)

	writer := persistence.NewWriterQueue(logMgr.Logger("persistence"), writerQueueCapacity)
	writer.Start(ctx)
	chat.StartPersistenceProjection(ctx, b, store, writer, convoRepo)

	moderationSvc := moderation.NewService()
	moderationSvc.SetOpts(moderation.Opts{LabelVisibility: cfg.Moderation.LabelVisibility})
	shadowStore := shadow.NewStore()

	client := chatapi.NewClient(chatapi.Config{
		Host:        cfg.Service.Host,
		ChatProxy:   cfg.Service.ChatProxy,
		AccessToken: sess.AccessToken,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Sync.RequestsPerSecond), cfg.Sync.RequestBurst),
		Logger:      logMgr.Logger("chatapi"),
	})

	refresher := app.NewRefresher(app.RefresherConfig{
		AccountDID: sess.DID,
		Store:      store,
		Lister:     client,
		Bus:        b,
		Interval:   time.Duration(cfg.Sync.RefreshIntervalSeconds) * time.Second,
		PageLimit:  cfg.Sync.PageLimit,
		MaxPages:   cfg.Sync.MaxPages,
		Logger:     logMgr.Logger("refresher"),
	})

	if *once {
		return runOnce(ctx, logger, refresher, store, moderationSvc, shadowStore, sess.DID)
	}

	poller := app.NewLogPoller(app.LogPollerConfig{
		AccountDID: sess.DID,
		Tailer:     client,
		Bus:        b,
		Interval:   time.Duration(cfg.Sync.LogPollIntervalSeconds) * time.Second,
		Logger:     logMgr.Logger("logpoller"),
	})

	badge := app.NewBadgeService(app.BadgeServiceConfig{
		AccountDID: sess.DID,
		Store:      store,
		Decider:    moderationSvc,
		Overlay:    shadowStore,
		Bus:        b,
		Logger:     logMgr.Logger("badge"),
	})

	sender := notifications.NewDesktopSender(logMgr.Logger("notifications"))
	notifier := app.NewNotificationService(
		b,
		store,
		moderationSvc,
		sess.DID,
		func() config.AppConfig { return cfg },
		sender,
		logMgr.Logger("notifications"),
	)

	refresher.Start(ctx)
	poller.Start(ctx)
	badge.Start(ctx)
	notifier.Start(ctx)

	watch(ctx, b, logger)

	logger.Info("listening until interrupt")
	<-ctx.Done()

	return nil
}

// runOnce performs a single refresh and prints the badge text to stdout.
// The empty string means no unread conversations.
func runOnce(ctx context.Context, logger *slog.Logger, refresher *app.Refresher, store *chat.ListStore, decider chat.Decider, overlay chat.ProfileOverlay, accountDID string) error {
	if err := refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh once: %w", err)
	}

	convos := store.Convos(chat.ListKey(accountDID))
	badge := chat.CountUnread(convos, "", accountDID, decider, overlay)
	logger.Info("unread badge", "count", badge.Count, "display", badge.Display, "convos", len(convos))
	fmt.Println(badge.Display)

	return nil
}

func watch(ctx context.Context, b bus.MessageBus, logger *slog.Logger) {
	syncSub := b.Subscribe(events.TopicSyncStatus)
	badgeSub := b.Subscribe(events.TopicBadgeUpdated)
	messageSub := b.Subscribe(events.TopicMessageCreated)

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(syncSub, events.TopicSyncStatus)
				b.Unsubscribe(badgeSub, events.TopicBadgeUpdated)
				b.Unsubscribe(messageSub, events.TopicMessageCreated)

				return
			case raw := <-syncSub:
				if status, ok := raw.(events.SyncStatus); ok && status.State != events.SyncStateRefreshing {
					logger.Info("sync", "state", status.State, "convos", status.Convos, "pages", status.Pages, "error", status.Err)
				}
			case raw := <-badgeSub:
				if update, ok := raw.(events.BadgeUpdated); ok {
					logger.Info("badge", "count", update.Count, "display", update.Display)
				}
			case raw := <-messageSub:
				if ev, ok := raw.(chat.MessageCreated); ok && ev.Message != nil {
					logger.Info("message", "convo", ev.ConvoID, "sender", ev.Message.SenderDID)
				}
			}
		}
	}()
}
