package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"Mailcast/internal/metrics"
)

// Dialer delivers composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Retries is the number of extra attempts after the first failure.
	Retries       int
	RetryInterval time.Duration

	BreakerName        string
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

type Sender struct {
	dialer        Dialer
	retries       int
	retryInterval time.Duration
	breaker       *gobreaker.CircuitBreaker[struct{}]
	log           *zap.Logger
}

func NewSender(cfg Config, log *zap.Logger) *Sender {
	return NewSenderWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg, log)
}

func NewSenderWithDialer(d Dialer, cfg Config, log *zap.Logger) *Sender {
	if cfg.BreakerName == "" {
		cfg.BreakerName = "smtp"
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}

	s := &Sender{
		dialer:        d,
		retries:       cfg.Retries,
		retryInterval: cfg.RetryInterval,
		log:           log,
	}

	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		// a rejected recipient says nothing about the health of the relay
		IsSuccessful: func(err error) bool {
			return err == nil || IsRejected(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("smtp circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	metrics.BreakerState.WithLabelValues(cfg.BreakerName).Set(float64(gobreaker.StateClosed))

	return s
}

// gomail flattens SMTP errors with %v, so the reply code is recovered from
// the text when the *textproto.Error is no longer in the chain.
var replyCode = regexp.MustCompile(`(?:^|: )([2-5][0-9]{2})[ -]`)

// SMTPCode returns the SMTP reply code carried by err, or 0.
func SMTPCode(err error) int {
	if err == nil {
		return 0
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code
	}

	m := replyCode.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// IsRejected reports whether err is a permanent (5xx) SMTP reply, such as an
// unknown mailbox. Retrying it cannot succeed.
func IsRejected(err error) bool {
	return SMTPCode(err) >= 500
}

// Send delivers one plain-text message, retrying transient failures with
// exponential backoff. Permanent rejections and an open breaker fail fast
// without retrying.
func (s *Sender) Send(ctx context.Context, subject, body, from string, to []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	operation := func() error {
		_, err := s.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, s.dialer.DialAndSend(m)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if IsRejected(err) {
			return backoff.Permanent(fmt.Errorf("smtp rejected: %w", err))
		}
		if err != nil {
			return fmt.Errorf("smtp send error: %w", err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retries)), ctx))
}
