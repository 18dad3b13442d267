package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("teamdocs/analytics")

var (
	// ErrNoContent means the team owns no documents or its documents have no
	// recorded activity. It is an empty state, not a failure.
	ErrNoContent = errors.New("no analytics content")

	// ErrUpstream wraps failures of the document directory or the activity log.
	ErrUpstream = errors.New("analytics upstream failure")
)

// DocumentDirectory resolves the documents a team owns.
type DocumentDirectory interface {
	ListOwnedDocumentIDs(ctx context.Context, teamEmail string) ([]string, error)
}

// ActivityLogStore reads and purges activity events by document.
type ActivityLogStore interface {
	FetchEvents(ctx context.Context, docIDs []string) ([]ActivityEvent, error)
	DeleteEvents(ctx context.Context, docIDs []string) (int64, error)
}

// Service computes team analytics from its collaborators. It holds no
// mutable state, so one instance serves concurrent requests.
type Service struct {
	docs  DocumentDirectory
	logs  ActivityLogStore
	clock quartz.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for staleness alerts.
func WithClock(c quartz.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService creates an analytics service.
func NewService(docs DocumentDirectory, logs ActivityLogStore, opts ...Option) *Service {
	s := &Service{
		docs:  docs,
		logs:  logs,
		clock: quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute builds the analytics payload for a team.
// Returns ErrNoContent when there is nothing to aggregate.
func (s *Service) Compute(ctx context.Context, teamEmail string) (*Payload, error) {
	ctx, span := tracer.Start(ctx, "analytics.compute",
		trace.WithAttributes(attribute.String("team.email", teamEmail)))
	defer span.End()

	docIDs, err := s.docs.ListOwnedDocumentIDs(ctx, teamEmail)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: list documents: %w", ErrUpstream, err))
	}
	span.SetAttributes(attribute.Int("documents.count", len(docIDs)))
	if len(docIDs) == 0 {
		return nil, ErrNoContent
	}

	events, err := s.logs.FetchEvents(ctx, docIDs)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("%w: fetch events: %w", ErrUpstream, err))
	}
	span.SetAttributes(attribute.Int("events.count", len(events)))
	if len(events) == 0 {
		return nil, ErrNoContent
	}

	return BuildPayload(events, s.clock.Now()), nil
}

// Reset deletes every activity event on the team's documents and returns how
// many were removed. A team without documents is a no-op.
func (s *Service) Reset(ctx context.Context, teamEmail string) (int64, error) {
	ctx, span := tracer.Start(ctx, "analytics.reset",
		trace.WithAttributes(attribute.String("team.email", teamEmail)))
	defer span.End()

	docIDs, err := s.docs.ListOwnedDocumentIDs(ctx, teamEmail)
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("%w: list documents: %w", ErrUpstream, err))
	}
	if len(docIDs) == 0 {
		return 0, nil
	}

	deleted, err := s.logs.DeleteEvents(ctx, docIDs)
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("%w: delete events: %w", ErrUpstream, err))
	}
	span.SetAttributes(attribute.Int64("events.deleted", deleted))
	return deleted, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
