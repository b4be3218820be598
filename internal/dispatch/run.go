package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/template"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// errStopped ends a run whose message left the sending state
var errStopped = errors.New("dispatch stopped")

type runStats struct {
	attempted   int
	unavailable int
}

// Run delivers a message that is already in the sending state. Logs that
// were sent before are skipped, so running a message twice never sends
// to a recipient twice.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	span := o.tracer.Start(ctx, cnst.SpanDispatchRun)
	defer span.End()
	span.WithAttrs(attribute.String("message.id", id))
	ctx = span.Ctx

	// Writes after a stop or shutdown must still land.
	store := context.WithoutCancel(ctx)

	message, err := o.db.GetMessage(store, access.AllCompanies(), id)
	if err != nil {
		span.Fail(err)
		return err
	}
	if message.Status != database.MessageSending {
		return nil
	}

	o.metrics.DispatchStart()
	status := "interrupted"
	defer func() { o.metrics.DispatchDone(status) }()

	if message.Campaign == nil {
		status = string(database.MessageError)
		return o.fail(store, message.ID, errors.New("campaign not found"))
	}
	recipients, err := o.db.MessageRecipients(store, message.ID)
	if err != nil {
		status = string(database.MessageError)
		return o.fail(store, message.ID, fmt.Errorf("failed to load recipients: %w", err))
	}
	span.WithAttrs(attribute.Int("message.recipients", len(recipients)))

	stats, err := o.deliver(ctx, store, message, recipients)
	if cerr := o.recount(store, message.ID, len(recipients)); cerr != nil {
		o.logger.Error("failed to recompute counters", zap.String("message_id", message.ID), zap.Error(cerr))
	}

	switch {
	case errors.Is(err, errStopped) || errors.Is(err, context.Canceled):
		o.logger.Info("dispatch interrupted", zap.String("message_id", message.ID), zap.Int("attempted", stats.attempted))
		return nil
	case err != nil:
		status = string(database.MessageError)
		span.Fail(err)
		return o.fail(store, message.ID, err)
	}

	final := database.MessageSent
	if stats.attempted > 0 && stats.unavailable == stats.attempted {
		final = database.MessageError
	}
	ok, err := o.db.TransitionMessage(store, message.ID, []database.MessageStatus{database.MessageSending},
		final, map[string]any{"send_finished_at": o.now()})
	if err != nil {
		span.Fail(err)
		return err
	}
	if ok {
		status = string(final)
	}
	o.logger.Info("dispatch finished",
		zap.String("message_id", message.ID),
		zap.String("status", string(final)),
		zap.Int("attempted", stats.attempted),
		zap.Int("unavailable", stats.unavailable))
	return nil
}

func (o *Orchestrator) delay(m *database.Message) time.Duration {
	if m.SendTimeoutSeconds > 0 {
		return time.Duration(m.SendTimeoutSeconds) * time.Second
	}
	return o.defaultDelay
}

func (o *Orchestrator) deliver(ctx, store context.Context, m *database.Message, recipients []*database.Contact) (runStats, error) {
	var stats runStats
	limit := rate.Inf
	if d := o.delay(m); d > 0 {
		limit = rate.Every(d)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, contact := range recipients {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		current, err := o.db.GetMessage(store, access.AllCompanies(), m.ID)
		if err != nil {
			return stats, err
		}
		if current.Status != database.MessageSending {
			return stats, errStopped
		}

		log, _, err := o.db.GetOrCreateMessageLog(store, &database.MessageLog{
			MessageID:   m.ID,
			ContactID:   contact.ID,
			ContactName: contact.Name,
			Phone:       contact.Phone,
			Text:        template.Render(m.Campaign.Text, contact.Name),
			Status:      database.LogPending,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to create log for contact %s: %w", contact.ID, err)
		}
		if log.Status == database.LogSent {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return stats, err
		}
		stats.attempted++
		if unavailable := o.sendOne(ctx, log); unavailable {
			stats.unavailable++
		}
		if err := o.db.UpdateMessageLog(store, log); err != nil {
			return stats, fmt.Errorf("failed to update log %s: %w", log.ID, err)
		}
	}
	return stats, nil
}

// sendOne sends the stored snapshot of log and records the outcome on it.
// It reports whether the provider could not be reached. A send cut short by
// a stop or shutdown leaves log untouched.
func (o *Orchestrator) sendOne(ctx context.Context, log *database.MessageLog) bool {
	span := o.tracer.Start(ctx, cnst.SpanProviderSend)
	defer span.End()
	span.WithAttrs(attribute.String("provider", o.provider.Name()), attribute.String("log.id", log.ID))

	start := time.Now()
	result, err := o.provider.Send(span.Ctx, log.Phone, log.Text)
	switch {
	case err != nil && ctx.Err() != nil:
		// The provider may have delivered it; the log stays pending.
		o.logger.Info("send interrupted", zap.String("log_id", log.ID), zap.String("phone", log.Phone), zap.Error(err))
		return false
	case err != nil:
		log.Status = database.LogError
		log.ErrorMessage = err.Error()
		log.ProviderResponse = ""
		span.Fail(err)
		o.metrics.SendDone(o.provider.Name(), string(database.LogError), start)
		o.logger.Warn("send failed", zap.String("log_id", log.ID), zap.String("phone", log.Phone), zap.Error(err))
		return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
	case result == nil || !result.Success:
		log.Status = database.LogError
		if result != nil {
			log.ProviderResponse = result.Raw
			log.ErrorMessage = result.Error
		}
		if log.ErrorMessage == "" {
			log.ErrorMessage = "rejected by provider"
		}
		o.metrics.SendDone(o.provider.Name(), string(database.LogError), start)
		o.logger.Warn("send rejected", zap.String("log_id", log.ID), zap.String("phone", log.Phone), zap.String("error", log.ErrorMessage))
	default:
		now := o.now()
		log.Status = database.LogSent
		log.ProviderResponse = result.Raw
		log.ErrorMessage = ""
		log.SentAt = &now
		o.metrics.SendDone(o.provider.Name(), string(database.LogSent), start)
	}
	return false
}

// recount recomputes the message counters from its logs
func (o *Orchestrator) recount(ctx context.Context, id string, total int) error {
	counts, err := o.db.CountMessageLogsByStatus(ctx, id)
	if err != nil {
		return err
	}
	return o.db.UpdateMessageCounters(ctx, id, total, int(counts[database.LogSent]), int(counts[database.LogError]))
}

// fail moves a sending message to error after a setup failure
func (o *Orchestrator) fail(ctx context.Context, id string, cause error) error {
	o.logger.Error("dispatch failed", zap.String("message_id", id), zap.Error(cause))
	if _, err := o.db.TransitionMessage(ctx, id, []database.MessageStatus{database.MessageSending},
		database.MessageError, map[string]any{"send_finished_at": o.now()}); err != nil {
		return err
	}
	return cause
}
