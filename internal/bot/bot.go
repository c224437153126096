package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studgram/studgram-bot/internal/config"
	"github.com/studgram/studgram-bot/internal/engine"
	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/netutil"

	tele "gopkg.in/telebot.v4"
)

// Options controls the behaviour of Run.
type Options struct {
	Config *config.Config

	// Build constructs the update engine once the outbound sender exists.
	Build func(sender engine.Sender) *engine.Engine

	Sender SenderOptions

	DisableWebhookCleanup bool
}

// Run composes and runs the Telegram bot until the provided context is done.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Build == nil {
		return fmt.Errorf("telegram: nil engine builder provided")
	}

	poller := BuildPoller(cfg)

	buildStart := time.Now()
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: netutil.BuildHTTPClient(0),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	log := logger.Component("tg")
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.LogEvent(ctx, log, slog.LevelInfo, "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
		if timeoutSec <= 0 {
			timeoutSec = 10
		}
		logger.LogEvent(ctx, log, slog.LevelInfo, "mode",
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", timeoutSec),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)

		if !opts.DisableWebhookCleanup {
			if err := deleteWebhook(cfg.Telegram.Token, false); err != nil {
				logger.LogEvent(ctx, log, slog.LevelWarn, "delete_webhook",
					slog.String("err", err.Error()),
				)
			} else {
				logger.LogEvent(ctx, log, slog.LevelInfo, "delete_webhook",
					slog.String("status", "ok"),
				)
			}
		}
	}

	sender := NewSender(b, opts.Sender)
	eng := opts.Build(sender)
	if eng == nil {
		sender.Close()
		return fmt.Errorf("telegram: engine builder returned nil")
	}

	b.Use(Recover)
	b.Use(Logger)
	if cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		b.Use(RateLimit(RateLimitOptions{
			Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:  exclude,
		}))
	}

	registerRoutes(b, eng)

	runDone := make(chan struct{})
	go func() {
		b.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		b.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	sender.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func registerRoutes(b *tele.Bot, eng *engine.Engine) {
	b.Handle("/start", func(c tele.Context) error {
		eng.HandleStart(Ctx(c), eventFrom(c))
		return nil
	})

	b.Handle(tele.OnText, func(c tele.Context) error {
		ev := eventFrom(c)
		ev.Text = c.Text()
		eng.HandleText(Ctx(c), ev)
		return nil
	})

	b.Handle(tele.OnPhoto, func(c tele.Context) error {
		ev := eventFrom(c)
		if msg := c.Message(); msg != nil {
			ev.Text = msg.Caption
			ev.ImageURL = photoURL(b, msg)
		}
		eng.HandleText(Ctx(c), ev)
		return nil
	})

	b.Handle(tele.OnCallback, func(c tele.Context) error {
		ev := eventFrom(c)
		ev.Payload = callbackPayload(c.Callback())
		// Ack first so the button stops spinning even on slow backends.
		_ = c.Respond(&tele.CallbackResponse{})
		eng.HandleCallback(Ctx(c), ev)
		return nil
	})
}

func eventFrom(c tele.Context) engine.Event {
	var ev engine.Event
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		ev.UserID = user.ID
	}
	return ev
}

// photoURL resolves the largest photo of a message to a downloadable URL.
func photoURL(b *tele.Bot, msg *tele.Message) string {
	if msg.Photo == nil {
		return ""
	}
	f, err := b.FileByID(msg.Photo.FileID)
	if err != nil {
		return ""
	}
	apiURL := b.URL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return fmt.Sprintf("%s/file/bot%s/%s", apiURL, b.Token, f.FilePath)
}

func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
