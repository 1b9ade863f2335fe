// Package delivery runs scheduled newsletter firings: the expiry check, the
// message x client send batch and its audit log.
package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"Mailcast/internal/metrics"
	"Mailcast/internal/models"
)

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

type Store interface {
	ListNewsletterMessages(ctx context.Context, newsletterID int64) ([]models.Message, error)
	ListNewsletterClients(ctx context.Context, newsletterID int64) ([]models.Client, error)
	InsertLog(ctx context.Context, entry *models.NewsletterLog) error
}

type Report struct {
	Attempted int
	Succeeded int
	Failed    int
}

type Engine struct {
	store   Store
	mailer  Mailer
	from    string
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewEngine builds the dispatch engine. limiter may be nil.
func NewEngine(store Store, mailer Mailer, from string, limiter *rate.Limiter, log *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		mailer:  mailer,
		from:    from,
		limiter: limiter,
		log:     log,
	}
}

// Run sends every message of nl to every client of nl once and writes one
// log row per attempt. Individual send failures are recorded, never
// returned; an error means the batch could not be built at all.
func (e *Engine) Run(ctx context.Context, nl *models.Newsletter) (Report, error) {
	var report Report

	// once started, the batch runs to completion
	ctx = context.WithoutCancel(ctx)

	messages, err := e.store.ListNewsletterMessages(ctx, nl.ID)
	if err != nil {
		return report, fmt.Errorf("list messages of newsletter %d: %w", nl.ID, err)
	}
	clients, err := e.store.ListNewsletterClients(ctx, nl.ID)
	if err != nil {
		return report, fmt.Errorf("list clients of newsletter %d: %w", nl.ID, err)
	}

	for _, msg := range messages {
		for _, client := range clients {
			report.Attempted++
			if e.sendOne(ctx, nl, msg, client) {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}
	}

	return report, nil
}

func (e *Engine) sendOne(ctx context.Context, nl *models.Newsletter, msg models.Message, client models.Client) bool {
	fields := []zap.Field{
		zap.Int64("newsletter_id", nl.ID),
		zap.Int64("message_id", msg.ID),
		zap.Int64("client_id", client.ID),
		zap.String("to", client.Email),
	}

	err := e.send(ctx, msg, client)

	entry := &models.NewsletterLog{
		Outcome:      models.OutcomeSuccess,
		Response:     models.ResponseDelivered,
		ClientID:     &client.ID,
		MessageID:    &msg.ID,
		NewsletterID: &nl.ID,
	}
	if err != nil {
		entry.Outcome = models.OutcomeFailure
		entry.Response = err.Error()
		metrics.SendFailures.Inc()
		e.log.Error("newsletter email send failed", append(fields, zap.Error(err))...)
	} else {
		metrics.SendsTotal.Inc()
		e.log.Info("newsletter email sent", fields...)
	}

	if logErr := e.store.InsertLog(ctx, entry); logErr != nil {
		e.log.Error("failed to write newsletter log", append(fields, zap.Error(logErr))...)
	}

	return err == nil
}

func (e *Engine) send(ctx context.Context, msg models.Message, client models.Client) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mail transport panic: %v", r)
		}
	}()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	return e.mailer.Send(ctx, msg.Subject, msg.Body, e.from, []string{client.Email})
}
