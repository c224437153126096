package bot

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studgram/studgram-bot/internal/engine"
	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after sender stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// SenderOptions controls the behaviour of the outbound sender queue.
type SenderOptions struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single message.
	MaxDuration time.Duration
}

type sendJob struct {
	chatID int64
	run    func() error
}

// Sender delivers outbound messages asynchronously with retries.
// It implements engine.Sender.
type Sender struct {
	bot  *tele.Bot
	opts SenderOptions
	jobs chan sendJob
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64
	log  *slog.Logger
}

// NewSender starts a sender with sane defaults if options are zeroed.
func NewSender(bot *tele.Bot, opts SenderOptions) *Sender {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	s := &Sender{
		bot:  bot,
		opts: opts,
		jobs: make(chan sendJob, opts.QueueSize),
		stop: make(chan struct{}),
		log:  logger.Component("tg.sender"),
	}

	s.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go s.worker()
	}

	return s
}

// Send queues a message for delivery. The keyboard, when non-empty, is
// rendered as an inline keyboard attached to the message.
func (s *Sender) Send(chatID int64, text string, keyboard [][]engine.Button) error {
	markup := InlineMarkup(keyboard)
	return s.enqueue(chatID, func() error {
		var err error
		if markup != nil {
			_, err = s.bot.Send(tele.ChatID(chatID), text, markup)
		} else {
			_, err = s.bot.Send(tele.ChatID(chatID), text)
		}
		return err
	})
}

func (s *Sender) enqueue(chatID int64, run func() error) error {
	select {
	case <-s.stop:
		return ErrQueueClosed
	default:
	}

	select {
	case s.jobs <- sendJob{chatID: chatID, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of messages that exhausted all attempts.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Close stops workers and waits for them to finish processing queued jobs.
// The jobs channel is never closed: a handler still in flight may race its
// enqueue against shutdown, and such a send must fail, not panic.
func (s *Sender) Close() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}

func (s *Sender) worker() {
	defer s.wg.Done()
	for {
		select {
		case j := <-s.jobs:
			s.deliver(j)
		case <-s.stop:
			// Drain what was queued before shutdown.
			for {
				select {
				case j := <-s.jobs:
					s.deliver(j)
				default:
					return
				}
			}
		}
	}
}

func (s *Sender) deliver(j sendJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := s.opts.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		err := j.run()
		if err == nil {
			if s.log != nil {
				attrs := []slog.Attr{
					slog.Int64("chat_id", j.chatID),
					slog.Duration("took", logger.Took(start)),
				}
				if attempt > 1 {
					attrs = append(attrs, slog.Int("attempt", attempt))
				}
				logger.LogEvent(ctx, s.log, slog.LevelDebug, "send.success", attrs...)
			}
			return
		}

		lastErr = err
		if !retriable(err) || attempt == attempts {
			break
		}

		delay := retryDelay(err, s.opts.RetryBackoff*time.Duration(attempt))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
		case <-timer.C:
			continue
		}
		break
	}

	s.errs.Add(1)
	if s.log != nil {
		logger.LogEvent(ctx, s.log, slog.LevelError, "send.fail",
			slog.Int64("chat_id", j.chatID),
			slog.String("error", sanitizeErrorMessage(lastErr)),
			slog.String("error_kind", classifySendError(lastErr)),
			slog.Int("attempts", attempts),
			slog.Duration("took", logger.Took(start)),
		)
	}
}

// retriable reports whether a delivery error is worth another attempt.
func retriable(err error) bool {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}
	return netutil.ShouldRetry(err)
}

// retryDelay honours the retry-after hint on flood errors.
func retryDelay(err error, backoff time.Duration) time.Duration {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) && floodErr.RetryAfter > 0 {
		return time.Duration(floodErr.RetryAfter) * time.Second
	}
	return backoff
}

func classifySendError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return "flood"
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}
	return "unknown"
}

// sanitizeErrorMessage prevents accidental leakage of bot tokens in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
