// Package report fetches one sender's messages and turns them into a cadence report.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshsymonds/chronocadence/internal/aggregate"
	"github.com/joshsymonds/chronocadence/internal/gmail"
	"github.com/joshsymonds/chronocadence/internal/ingest"
	"github.com/joshsymonds/chronocadence/internal/insight"
	"github.com/joshsymonds/chronocadence/internal/rate"
	"github.com/joshsymonds/chronocadence/internal/timestamp"
)

const (
	defaultMaxRecords = 500
	defaultPageSize   = 100
	maxPageSize       = 500
	recentLimit       = 5
)

func defaultHeaders() []string {
	return []string{"From", "To", "Subject", "Date"}
}

// Options controls one analysis run.
type Options struct {
	Sender     string
	MaxRecords int
	PageSize   int
}

// Service analyses the cadence of one correspondent.
type Service struct {
	Client     gmail.Client
	Limiter    rate.Limiter
	Logger     *slog.Logger
	Clock      func() time.Time
	Normalizer *timestamp.Normalizer
	Generator  insight.Generator
}

// NewService constructs a Service. A nil normalizer reports in UTC and a nil
// generator uses the rule engine.
func NewService(
	client gmail.Client,
	limiter rate.Limiter,
	logger *slog.Logger,
	normalizer *timestamp.Normalizer,
	generator insight.Generator,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if normalizer == nil {
		normalizer = timestamp.NewNormalizer(time.UTC)
	}
	if generator == nil {
		generator = insight.NewRuleEngine()
	}
	return &Service{
		Client:     client,
		Limiter:    limiter,
		Logger:     logger,
		Clock:      time.Now,
		Normalizer: normalizer,
		Generator:  generator,
	}
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Sender      string                  `json:"sender"`
	Domain      string                  `json:"domain"`
	Timezone    string                  `json:"timezone"`
	Total       int                     `json:"total"`
	Fallbacks   int                     `json:"fallbacks"`
	Bundle      aggregate.Bundle        `json:"bundle"`
	Subjects    aggregate.SubjectStats  `json:"subjects"`
	Cadence     aggregate.CadenceStats  `json:"cadence"`
	Periods     []aggregate.PeriodCount `json:"periods"`
	Recent      []ingest.Record         `json:"recent"`
	Insights    insight.List            `json:"insights"`
}

// Run fetches up to MaxRecords messages from the sender and analyses them.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	sender := strings.TrimSpace(opts.Sender)
	if sender == "" {
		return Report{}, errors.New("sender must not be empty")
	}
	if insight.DomainOf(sender) == "" {
		return Report{}, fmt.Errorf("sender %q is not an email address", sender)
	}
	limit := opts.MaxRecords
	if limit <= 0 {
		limit = defaultMaxRecords
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	logger := s.Logger
	logger.InfoContext(ctx, "analysing sender", slog.String("sender", sender), slog.Int("max", limit))

	raws, err := s.fetchMessages(ctx, sender, limit, pageSize)
	if err != nil {
		return Report{}, err
	}
	rep := s.AnalyzeRecords(ctx, raws, sender)
	if rep.Fallbacks > 0 {
		logger.WarnContext(ctx, "unparsable timestamps replaced with run time",
			slog.Int("fallbacks", rep.Fallbacks), slog.Int("total", rep.Total))
	}
	logger.InfoContext(ctx, "analysis complete",
		slog.String("run_id", rep.RunID), slog.Int("total", rep.Total), slog.Int("insights", len(rep.Insights)))
	return rep, nil
}

// AnalyzeRecords runs the pure pipeline over already retrieved messages.
func (s *Service) AnalyzeRecords(ctx context.Context, raws []ingest.RawMessage, sender string) Report {
	records := ingest.New(s.Normalizer).Ingest(raws)
	domain := insight.DomainOf(sender)
	bundle := aggregate.Aggregate(records)
	subjects := aggregate.Subjects(records)
	cadence := aggregate.Cadence(records)

	return Report{
		RunID:       uuid.NewString(),
		GeneratedAt: s.Clock(),
		Sender:      sender,
		Domain:      domain,
		Timezone:    s.Normalizer.Location.String(),
		Total:       bundle.Total,
		Fallbacks:   ingest.Fallbacks(records),
		Bundle:      bundle,
		Subjects:    subjects,
		Cadence:     cadence,
		Periods:     aggregate.Periods(records),
		Recent:      aggregate.Recent(records, recentLimit),
		Insights: s.Generator.Generate(ctx, insight.Input{
			Bundle:   bundle,
			Subjects: subjects,
			Cadence:  cadence,
			Domain:   domain,
		}),
	}
}

func (s *Service) fetchMessages(
	ctx context.Context,
	sender string,
	limit int,
	pageSize int,
) ([]ingest.RawMessage, error) {
	query := gmail.SenderQuery(sender)
	headers := defaultHeaders()
	var (
		raws  []ingest.RawMessage
		token string
	)
	for len(raws) < limit {
		size := pageSize
		if remaining := limit - len(raws); remaining < size {
			size = remaining
		}
		page, err := s.listMessages(ctx, query, token, size)
		if err != nil {
			return nil, err
		}
		ids := page.IDs
		if remaining := limit - len(raws); len(ids) > remaining {
			ids = ids[:remaining]
		}
		chunk, err := s.messageMetadata(ctx, ids, headers)
		if err != nil {
			return nil, err
		}
		raws = append(raws, chunk...)

		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return raws, nil
}

func (s *Service) listMessages(
	ctx context.Context,
	query gmail.Query,
	pageToken string,
	pageSize int,
) (gmail.ListPage, error) {
	if err := s.wait(ctx, "rate limit messages"); err != nil {
		return gmail.ListPage{}, err
	}
	page, err := s.Client.List(ctx, query, pageToken, pageSize)
	if err != nil {
		return gmail.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	return page, nil
}

// messageMetadata skips messages whose metadata cannot be read; only
// cancellation aborts the batch.
func (s *Service) messageMetadata(
	ctx context.Context,
	ids []gmail.MessageID,
	headers []string,
) ([]ingest.RawMessage, error) {
	raws := make([]ingest.RawMessage, 0, len(ids))
	for _, id := range ids {
		if err := s.wait(ctx, "rate limit metadata"); err != nil {
			return nil, err
		}
		meta, err := s.Client.GetMetadata(ctx, id, headers)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("get metadata %s: %w", id, err)
			}
			s.Logger.WarnContext(ctx, "skipping message", slog.String("id", string(id)), slog.Any("error", err))
			continue
		}
		raws = append(raws, rawFromMeta(meta))
	}
	return raws, nil
}

func (s *Service) wait(ctx context.Context, operation string) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// rawFromMeta prefers the Date header and substitutes Gmail's internal date when
// the header is missing or unparsable.
func rawFromMeta(meta gmail.MessageMeta) ingest.RawMessage {
	ts := strings.TrimSpace(meta.Headers["Date"])
	if _, ok := timestamp.Parse(ts); !ok && !meta.InternalDate.IsZero() {
		ts = timestamp.Format(meta.InternalDate)
	}
	return ingest.RawMessage{
		ID:        string(meta.ID),
		Timestamp: ts,
		Subject:   meta.Headers["Subject"],
		From:      meta.Headers["From"],
		To:        meta.Headers["To"],
	}
}
