package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campus-relay/internal/domain"
)

// Backend answers summarize and conversation requests. Implementations never
// return transport errors; failures come back as a FailureKind.
type Backend interface {
	Infer(ctx context.Context, selector domain.Selector, text string) domain.InferenceResult
}

type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Journal is the optional write-only record of processed updates.
type Journal interface {
	Record(ctx context.Context, entry domain.JournalEntry) error
}

// Selectors picks the backend model or endpoint per route.
type Selectors struct {
	Conversation domain.Selector
	Summary      domain.Selector
}

type RelayInput struct {
	CorrelationID string
	Body          []byte
}

// RelayOutput describes what happened to one update. Skipped is set when the
// update carried no chat id and nothing was sent.
type RelayOutput struct {
	ChatID    int64
	Route     domain.RouteKind
	Reply     string
	Failure   domain.FailureKind
	Delivered bool
	Skipped   bool
}

type RelayService struct {
	backend   Backend
	sender    Sender
	journal   Journal
	selectors Selectors
	logger    *slog.Logger
	now       func() time.Time
}

type RelayOption func(*RelayService)

func WithJournal(j Journal) RelayOption {
	return func(s *RelayService) {
		s.journal = j
	}
}

func WithLogger(l *slog.Logger) RelayOption {
	return func(s *RelayService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewRelayService(b Backend, snd Sender, sel Selectors, opts ...RelayOption) (*RelayService, error) {
	if b == nil {
		return nil, errors.New("usecase: inference backend must not be nil")
	}
	if snd == nil {
		return nil, errors.New("usecase: sender must not be nil")
	}
	if sel.Conversation == "" || sel.Summary == "" {
		return nil, errors.New("usecase: conversation and summary selectors must not be empty")
	}
	s := &RelayService{
		backend:   b,
		sender:    snd,
		selectors: sel,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Process runs one webhook body through normalize, route, infer and send.
// It never fails: every error is logged and turned into silence or a fixed
// reply, so the caller can always acknowledge the webhook.
func (s *RelayService) Process(ctx context.Context, in RelayInput) RelayOutput {
	log := s.logger.With("correlation_id", in.CorrelationID)

	req, err := Normalize(in.Body)
	if err != nil {
		log.Debug("update discarded", "err", err)
		return RelayOutput{Skipped: true}
	}

	decision := Route(req.Text)
	log = log.With("chat_id", req.ChatID, "route", string(decision.Kind))

	out := RelayOutput{ChatID: req.ChatID, Route: decision.Kind}
	out.Reply, out.Failure = s.reply(ctx, decision)
	if out.Failure != domain.FailureNone {
		log.Warn("inference degraded", "err", newError(ErrorBackendUnavailable, string(out.Failure), nil))
	}

	if err := s.sender.Send(ctx, req.ChatID, out.Reply); err != nil {
		log.Warn("reply not delivered", "err", newError(ErrorDeliveryFailure, "send_failed", err))
	} else {
		out.Delivered = true
	}

	s.record(ctx, log, in.CorrelationID, out)
	log.Info("update processed", "delivered", out.Delivered)
	return out
}

func (s *RelayService) reply(ctx context.Context, d domain.RouteDecision) (string, domain.FailureKind) {
	switch d.Kind {
	case domain.RouteGreeting:
		return greetingReply, domain.FailureNone
	case domain.RouteStaticInfo:
		return newsReply(), domain.FailureNone
	case domain.RouteUsageHint:
		return usageHintReply, domain.FailureNone
	case domain.RouteSummarize:
		res := s.backend.Infer(ctx, s.selectors.Summary, d.Text)
		if !res.OK() {
			return FallbackText(res.Failure), res.Failure
		}
		return summaryPrefix + res.Text, domain.FailureNone
	default:
		res := s.backend.Infer(ctx, s.selectors.Conversation, d.Text)
		if !res.OK() {
			return FallbackText(res.Failure), res.Failure
		}
		return res.Text, domain.FailureNone
	}
}

func (s *RelayService) record(ctx context.Context, log *slog.Logger, correlationID string, out RelayOutput) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(ctx, domain.JournalEntry{
		ChatID:        out.ChatID,
		CorrelationID: correlationID,
		Route:         out.Route,
		Failure:       out.Failure,
		Delivered:     out.Delivered,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		log.Warn("journal write failed", "err", err)
	}
}
