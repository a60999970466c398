package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/gateway"
	"github.com/aniladanir/lead-funnel/internal/lifecycle"
	"github.com/aniladanir/lead-funnel/internal/metrics"
	leadRepo "github.com/aniladanir/lead-funnel/internal/repository/lead"
)

const defaultLockTTL = time.Minute

type LeadService interface {
	CreateLead(ctx context.Context, input CreateLeadInput) (*domain.Lead, error)
	GetLead(ctx context.Context, id int) (*domain.Lead, error)
	ListMessages(ctx context.Context, id int) ([]domain.Message, error)
	HandleInbound(ctx context.Context, id int, channel domain.Channel, content string) error
	MarkScheduled(ctx context.Context, id int, meetingURL string, expectedVersion *int) (*domain.Lead, error)
	NudgeDriver
	Ping(ctx context.Context) error
}

type CreateLeadInput struct {
	Name   string
	Email  *string
	Phone  *string
	Source *string
}

type Options struct {
	// AdvanceOnSendFailure keeps the advanced nudge state when the check-in
	// could not be delivered. When false the nudge is rolled back and retried
	// on the next tick.
	AdvanceOnSendFailure bool
	LockTTL              time.Duration
	Clock                func() time.Time
}

type leadService struct {
	leadRepo leadRepo.Repository
	engine   *lifecycle.Engine
	gateway  gateway.Gateway
	logger   *slog.Logger
	opts     Options
}

// pendingSend pairs an outbound message with the log row written before the send.
type pendingSend struct {
	record *domain.Message
	out    domain.OutboundMessage
}

func NewLeadService(leadRepo leadRepo.Repository, engine *lifecycle.Engine, gw gateway.Gateway, logger *slog.Logger, opts Options) LeadService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &leadService{
		leadRepo: leadRepo,
		engine:   engine,
		gateway:  gw,
		logger:   logger,
		opts:     opts,
	}
}

// CreateLead stores a new lead, schedules its first nudge and sends the welcome message
func (s *leadService) CreateLead(ctx context.Context, input CreateLeadInput) (*domain.Lead, error) {
	lead := &domain.Lead{
		Name:   input.Name,
		Email:  input.Email,
		Phone:  input.Phone,
		Source: input.Source,
		Status: domain.LeadNew,
	}

	var sends []pendingSend
	err := s.leadRepo.Create(ctx, lead, func(l *domain.Lead) ([]*domain.Message, error) {
		out, err := s.engine.OnLeadCreated(l, s.opts.Clock())
		if err != nil {
			return nil, err
		}
		sends = prepare(out)
		return records(sends), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	metrics.RecordLeadCreated()

	s.dispatch(ctx, lead.ID, sends)
	return lead, nil
}

func (s *leadService) GetLead(ctx context.Context, id int) (*domain.Lead, error) {
	return s.leadRepo.Get(ctx, id)
}

// ListMessages returns the conversation log of an existing lead
func (s *leadService) ListMessages(ctx context.Context, id int) ([]domain.Message, error) {
	if _, err := s.leadRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.leadRepo.ListMessages(ctx, id)
}

// HandleInbound logs a message from the lead and sends whatever replies it triggers
func (s *leadService) HandleInbound(ctx context.Context, id int, channel domain.Channel, content string) error {
	var (
		sends  []pendingSend
		before domain.LeadStatus
	)
	lead, err := s.leadRepo.Mutate(ctx, id, func(l *domain.Lead) ([]*domain.Message, error) {
		sends, before = nil, l.Status
		inbound := &domain.Message{
			Direction: domain.Inbound,
			Channel:   channel,
			Content:   content,
			Delivery:  domain.DeliveryReceived,
		}
		outs := s.engine.OnInboundMessage(l, channel, content)
		for i := range outs {
			sends = append(sends, prepare(&outs[i])...)
		}
		return append([]*domain.Message{inbound}, records(sends)...), nil
	})
	if err != nil {
		return err
	}
	s.recordTransition(lead, before)

	s.dispatch(ctx, lead.ID, sends)
	return nil
}

// MarkScheduled records the booked meeting and confirms it to the lead
func (s *leadService) MarkScheduled(ctx context.Context, id int, meetingURL string, expectedVersion *int) (*domain.Lead, error) {
	var (
		sends  []pendingSend
		before domain.LeadStatus
	)
	lead, err := s.leadRepo.Mutate(ctx, id, func(l *domain.Lead) ([]*domain.Message, error) {
		before = l.Status
		out, err := s.engine.OnScheduled(l, meetingURL, expectedVersion)
		if err != nil {
			return nil, err
		}
		sends = prepare(out)
		return records(sends), nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(lead, before)

	s.dispatch(ctx, lead.ID, sends)
	return lead, nil
}

// DueForNudge returns at most limit leads due at now, longest overdue first
func (s *leadService) DueForNudge(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	return s.leadRepo.DueForNudge(ctx, now, limit)
}

// FireNudge sends the next check-in to a due lead. The advanced nudge state is
// committed before the send, so a crash can repeat a nudge but never lose one.
func (s *leadService) FireNudge(ctx context.Context, id int) error {
	unlock, ok, err := s.leadRepo.LockNudge(ctx, id, s.opts.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock lead %d: %w", id, err)
	}
	if !ok {
		return domain.ErrNudgeInProgress
	}
	defer unlock()

	var (
		sends    []pendingSend
		prevNext *time.Time
		prevSent int
	)
	now := s.opts.Clock()
	lead, err := s.leadRepo.Mutate(ctx, id, func(l *domain.Lead) ([]*domain.Message, error) {
		// the lead may have been scheduled or nudged since it was listed
		if !l.IsDue(now) {
			return nil, domain.ErrNotDue
		}
		prevNext, prevSent = l.NextNudgeAt, l.NudgesSent
		sends = prepare(s.engine.OnNudgeFired(l, now))
		return records(sends), nil
	})
	if err != nil {
		return err
	}
	metrics.RecordNudge()

	if failed := s.dispatch(ctx, lead.ID, sends); failed > 0 {
		if !s.opts.AdvanceOnSendFailure {
			s.revertNudge(ctx, lead.ID, prevNext, prevSent)
		}
		return fmt.Errorf("nudge for lead %d: %w", lead.ID, domain.ErrDeliveryFailed)
	}
	return nil
}

func (s *leadService) Ping(ctx context.Context) error {
	return s.leadRepo.Ping(ctx)
}

// revertNudge restores the nudge state saved before a failed delivery, unless
// the lead changed in the meantime.
func (s *leadService) revertNudge(ctx context.Context, id int, prevNext *time.Time, prevSent int) {
	_, err := s.leadRepo.Mutate(ctx, id, func(l *domain.Lead) ([]*domain.Message, error) {
		if l.Status == domain.LeadScheduled || l.NudgesSent != prevSent+1 {
			return nil, nil
		}
		l.NudgesSent = prevSent
		l.NextNudgeAt = prevNext
		return nil, nil
	})
	if err != nil {
		s.logger.Error("failed to revert nudge", "leadId", id, "error", err.Error())
	}
}

// dispatch sends every pending message and records its outcome. It returns the
// number of failed sends.
func (s *leadService) dispatch(ctx context.Context, leadID int, sends []pendingSend) (failed int) {
	for _, p := range sends {
		msgLogger := s.logger.With(
			slog.Int("leadId", leadID),
			slog.Int("dbMessageId", p.record.ID),
			slog.String("channel", string(p.out.Channel)),
		)

		receipt, err := s.gateway.Send(ctx, p.out)
		if err != nil {
			failed++
			p.record.Delivery = domain.DeliveryFailed
			p.record.DeliveryError = err.Error()
			msgLogger.Error("failed to deliver message", "error", err.Error())
		} else {
			p.record.Delivery = domain.DeliverySent
			p.record.ProviderID = receipt.ProviderID
			msgLogger.Info("message is successfuly sent")
		}
		metrics.RecordOutbound(string(p.out.Channel), string(p.record.Delivery))

		if err := s.leadRepo.UpdateDelivery(ctx, p.record); err != nil {
			msgLogger.Error("failed to update message delivery", "error", err.Error())
		}
		if receipt.ProviderID != "" {
			if err := s.leadRepo.CacheReceipt(ctx, receipt.ProviderID, s.opts.Clock()); err != nil {
				msgLogger.Error("failed to cache message receipt", "error", err.Error())
			}
		}
	}
	return failed
}

func (s *leadService) recordTransition(lead *domain.Lead, before domain.LeadStatus) {
	if lead.Status == before {
		return
	}
	metrics.RecordTransition(string(lead.Status))
	s.logger.Info("lead status changed", "leadId", lead.ID, "from", before, "to", lead.Status)
}

func prepare(outs ...*domain.OutboundMessage) []pendingSend {
	sends := make([]pendingSend, 0, len(outs))
	for _, out := range outs {
		if out == nil {
			continue
		}
		sends = append(sends, pendingSend{
			record: &domain.Message{
				Direction: domain.Outbound,
				Channel:   out.Channel,
				Content:   out.Body,
				Delivery:  domain.DeliveryPending,
			},
			out: *out,
		})
	}
	return sends
}

func records(sends []pendingSend) []*domain.Message {
	msgs := make([]*domain.Message, 0, len(sends))
	for _, p := range sends {
		msgs = append(msgs, p.record)
	}
	return msgs
}
