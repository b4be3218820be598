// Package dispatch runs messages: it moves them through the sending
// state machine and delivers the campaign text to every recipient.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/pkg/metrics"
	"github.com/syncwave/crm/pkg/trace"
	"go.uber.org/zap"
)

// Options configures an Orchestrator
type Options struct {
	Provider Provider
	// Locker guards against two runs of the same message; defaults to a MemoryLocker
	Locker Locker
	// DefaultDelay paces sends of messages without their own delay
	DefaultDelay time.Duration
	Metrics      *metrics.Metrics
}

// Orchestrator owns the background runs of messages
type Orchestrator struct {
	db           database.Database
	policy       *access.Policy
	provider     Provider
	locker       Locker
	metrics      *metrics.Metrics
	tracer       *trace.Builder
	logger       *zap.Logger
	defaultDelay time.Duration
	now          func() time.Time

	baseCtx   context.Context
	cancelAll context.CancelFunc
	mu        sync.Mutex
	running   map[string]context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an orchestrator
func New(db database.Database, policy *access.Policy, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.Locker == nil {
		opts.Locker = NewMemoryLocker()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		db:           db,
		policy:       policy,
		provider:     opts.Provider,
		locker:       opts.Locker,
		metrics:      opts.Metrics,
		tracer:       trace.Tracer(cnst.TraceDispatch),
		logger:       logger.Named("dispatch"),
		defaultDelay: opts.DefaultDelay,
		now:          time.Now,
		baseCtx:      ctx,
		cancelAll:    cancel,
		running:      make(map[string]context.CancelFunc),
	}
}

// CanSend reports whether m may enter the sending state at now
func CanSend(m *database.Message, now time.Time) bool {
	if m.TotalContacts <= 0 {
		return false
	}
	if m.Status != database.MessageDraft && m.Status != database.MessagePending {
		return false
	}
	return m.ScheduledAt == nil || !m.ScheduledAt.After(now)
}

// cannotSend explains why CanSend is false
func cannotSend(m *database.Message, now time.Time) error {
	switch {
	case m.Status == database.MessageSending:
		return errorx.InvalidState(errorx.MsgMessageAlreadyRunning)
	case m.Status != database.MessageDraft && m.Status != database.MessagePending:
		return errorx.InvalidState(errorx.MsgMessageCannotSend).WithParam("Status", string(m.Status))
	case m.TotalContacts <= 0:
		return errorx.InvalidState(errorx.MsgMessageNoRecipients)
	case m.ScheduledAt != nil && m.ScheduledAt.After(now):
		return errorx.InvalidState(errorx.MsgMessageNotDue)
	}
	return nil
}

func (o *Orchestrator) writableMessage(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	scope, err := o.policy.Scope(ctx, p, true)
	if err != nil {
		return nil, err
	}
	message, err := o.db.GetMessage(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := o.policy.AuthorizeWrite(ctx, p, message.CompanyID); err != nil {
		return nil, err
	}
	return message, nil
}

// Start moves a draft or pending message to sending and runs it in the background
func (o *Orchestrator) Start(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	message, err := o.writableMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	now := o.now()
	if !CanSend(message, now) {
		return nil, cannotSend(message, now)
	}
	if err := o.begin(ctx, message, []database.MessageStatus{message.Status}); err != nil {
		return nil, err
	}
	o.logger.Info("dispatch started",
		zap.String("message_id", message.ID),
		zap.Int("total_contacts", message.TotalContacts),
		zap.String("by", p.Username))
	return o.db.GetMessage(ctx, access.AllCompanies(), message.ID)
}

// begin takes the message lock, moves the message from one of the given
// states to sending and launches its run
func (o *Orchestrator) begin(ctx context.Context, message *database.Message, from []database.MessageStatus) error {
	unlock, ok, err := o.locker.TryLock(ctx, message.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.InvalidState(errorx.MsgMessageAlreadyRunning)
	}

	now := o.now()
	ok, err = o.db.TransitionMessage(ctx, message.ID, from, database.MessageSending, map[string]any{
		"send_started_at":  now,
		"send_finished_at": nil,
	})
	if err != nil {
		unlock()
		return err
	}
	if !ok {
		unlock()
		return errorx.InvalidState(errorx.MsgMessageAlreadyRunning)
	}

	o.launch(message.ID, unlock)
	return nil
}

// launch runs the message on a goroutine owned by the orchestrator
func (o *Orchestrator) launch(id string, unlock func()) {
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.mu.Lock()
	o.running[id] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer unlock()
		defer func() {
			o.mu.Lock()
			delete(o.running, id)
			o.mu.Unlock()
			cancel()
		}()
		if err := o.Run(ctx, id); err != nil {
			o.logger.Error("dispatch run failed", zap.String("message_id", id), zap.Error(err))
		}
	}()
}

// Stop cancels a running message
func (o *Orchestrator) Stop(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	message, err := o.writableMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if message.Status != database.MessageSending {
		return nil, errorx.InvalidState(errorx.MsgMessageNotRunning)
	}
	ok, err := o.db.TransitionMessage(ctx, message.ID, []database.MessageStatus{database.MessageSending},
		database.MessageCancelled, map[string]any{"send_finished_at": o.now()})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.InvalidState(errorx.MsgMessageNotRunning)
	}

	o.mu.Lock()
	cancel, running := o.running[message.ID]
	o.mu.Unlock()
	if running {
		cancel()
	}
	o.logger.Info("dispatch stopped", zap.String("message_id", message.ID), zap.String("by", p.Username))
	return o.db.GetMessage(ctx, access.AllCompanies(), message.ID)
}

// Retry puts a failed message back to pending and starts it again when it
// is due. Recipients already sent are skipped.
func (o *Orchestrator) Retry(ctx context.Context, p *access.Principal, id string) (*database.Message, error) {
	message, err := o.writableMessage(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if message.Status != database.MessageError {
		return nil, errorx.InvalidState(errorx.MsgMessageCannotRetry)
	}
	ok, err := o.db.TransitionMessage(ctx, message.ID, []database.MessageStatus{database.MessageError},
		database.MessagePending, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorx.InvalidState(errorx.MsgMessageCannotRetry)
	}
	message.Status = database.MessagePending

	if CanSend(message, o.now()) {
		if err := o.begin(ctx, message, []database.MessageStatus{database.MessagePending}); err != nil {
			return nil, err
		}
	}
	o.logger.Info("dispatch retried", zap.String("message_id", message.ID), zap.String("by", p.Username))
	return o.db.GetMessage(ctx, access.AllCompanies(), message.ID)
}

// StartDue starts pending messages whose schedule has passed and returns
// how many were started
func (o *Orchestrator) StartDue(ctx context.Context, limit int) (int, error) {
	due, err := o.db.ListDueMessages(ctx, o.now(), limit)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, m := range due {
		if err := o.begin(ctx, m, []database.MessageStatus{database.MessagePending}); err != nil {
			if errorx.IsKind(err, errorx.KindInvalidState) {
				continue
			}
			return started, err
		}
		started++
		o.logger.Info("scheduled dispatch started", zap.String("message_id", m.ID))
	}
	return started, nil
}

// Recover resumes messages left in the sending state by a previous process
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	stuck, err := o.db.ListMessagesByStatus(ctx, database.MessageSending)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, m := range stuck {
		unlock, ok, err := o.locker.TryLock(ctx, m.ID)
		if err != nil {
			return resumed, err
		}
		if !ok {
			continue
		}
		o.launch(m.ID, unlock)
		resumed++
		o.logger.Info("dispatch resumed", zap.String("message_id", m.ID))
	}
	return resumed, nil
}

// Running reports whether a run of the message is active in this process
func (o *Orchestrator) Running(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[id]
	return ok
}

// Wait blocks until every run started so far has returned
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown interrupts the active runs and waits for them. Interrupted
// messages stay in sending and are resumed by Recover.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancelAll()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
