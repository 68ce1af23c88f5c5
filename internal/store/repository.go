package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joshsymonds/chronocadence/internal/report"
)

// SnapshotInsight is an insight as archived.
type SnapshotInsight struct {
	Category string `bson:"category" json:"category"`
	Text     string `bson:"text" json:"text"`
	Rank     int    `bson:"rank" json:"rank"`
}

// Snapshot is the summary of one run kept for history. Raw records are never stored.
type Snapshot struct {
	RunID              string            `bson:"_id" json:"run_id"`
	Sender             string            `bson:"sender" json:"sender"`
	Domain             string            `bson:"domain" json:"domain"`
	Timezone           string            `bson:"timezone" json:"timezone"`
	GeneratedAt        time.Time         `bson:"generated_at" json:"generated_at"`
	Total              int               `bson:"total" json:"total"`
	Fallbacks          int               `bson:"fallbacks" json:"fallbacks"`
	PeakHour           int               `bson:"peak_hour" json:"peak_hour"`
	PeakWeekday        int               `bson:"peak_weekday" json:"peak_weekday"`
	PeakMonth          int               `bson:"peak_month" json:"peak_month"`
	BusinessHoursShare float64           `bson:"business_hours_share" json:"business_hours_share"`
	WeekendShare       float64           `bson:"weekend_share" json:"weekend_share"`
	OffHoursShare      float64           `bson:"off_hours_share" json:"off_hours_share"`
	PerWeek            float64           `bson:"per_week" json:"per_week"`
	Insights           []SnapshotInsight `bson:"insights" json:"insights"`
}

// SnapshotFromReport reduces a report to its archived summary. PeakMonth is 1-12.
func SnapshotFromReport(rep report.Report) Snapshot {
	b := rep.Bundle
	snap := Snapshot{
		RunID:              rep.RunID,
		Sender:             rep.Sender,
		Domain:             rep.Domain,
		Timezone:           rep.Timezone,
		GeneratedAt:        rep.GeneratedAt.UTC(),
		Total:              rep.Total,
		Fallbacks:          rep.Fallbacks,
		PeakHour:           b.PeakHour.Index,
		PeakWeekday:        b.PeakWeekday.Index,
		PeakMonth:          b.PeakMonth.Index + 1,
		BusinessHoursShare: b.BusinessHoursShare,
		WeekendShare:       b.WeekendShare,
		OffHoursShare:      b.OffHoursShare,
		Insights:           make([]SnapshotInsight, 0, len(rep.Insights)),
	}
	if rep.Cadence.OK {
		snap.PerWeek = rep.Cadence.PerWeek
	}
	for _, in := range rep.Insights {
		snap.Insights = append(snap.Insights, SnapshotInsight{
			Category: in.Category.String(),
			Text:     in.Text,
			Rank:     in.Rank,
		})
	}
	return snap
}

// ReportRepository persists snapshots, one document per run.
type ReportRepository struct {
	collection *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{collection: db.Collection(snapshotsCollection)}
}

// EnsureIndexes creates the sender/recency index Latest relies on.
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender", Value: 1}, {Key: "generated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create snapshot index: %w", err)
	}
	return nil
}

// Save stores the snapshot of rep.
func (r *ReportRepository) Save(ctx context.Context, rep report.Report) error {
	if rep.RunID == "" {
		return errors.New("report has no run id")
	}
	if _, err := r.collection.InsertOne(ctx, SnapshotFromReport(rep)); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", rep.RunID, err)
	}
	return nil
}

// Latest returns up to limit snapshots for sender, newest first.
func (r *ReportRepository) Latest(ctx context.Context, sender string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"sender": sender}, opts)
	if err != nil {
		return nil, fmt.Errorf("find snapshots: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var snaps []Snapshot
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return snaps, nil
}
