package store

import (
	"context"
	"time"

	"okx-short-bot/internal/position"
	"okx-short-bot/internal/risk"
)

// Recorder persists the pipeline's decisions: every assessment, accepted or
// rejected, and every locally triggered close instruction.
type Recorder interface {
	RecordAssessment(ctx context.Context, assessment risk.Assessment, confidence float64) error
	RecordClose(ctx context.Context, pos position.Position, reason string) error
}

// NoopRecorder drops every record, used when the database is disabled
type NoopRecorder struct{}

func (NoopRecorder) RecordAssessment(context.Context, risk.Assessment, float64) error { return nil }
func (NoopRecorder) RecordClose(context.Context, position.Position, string) error     { return nil }

// AssessmentRecord is one persisted decision row
type AssessmentRecord struct {
	ID              int64     `json:"id"`
	SignalID        string    `json:"signal_id"`
	Symbol          string    `json:"symbol"`
	SignalType      string    `json:"signal_type"`
	Confidence      float64   `json:"confidence"`
	Entry           float64   `json:"entry"`
	Stop            float64   `json:"stop"`
	Target          float64   `json:"target"`
	Size            float64   `json:"size"`
	RewardRisk      float64   `json:"reward_risk"`
	RiskPercent     float64   `json:"risk_percent"`
	Accepted        bool      `json:"accepted"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordAssessment inserts one decision row
func (db *DB) RecordAssessment(ctx context.Context, assessment risk.Assessment, confidence float64) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO assessments (
			signal_id, symbol, signal_type, confidence, entry, stop, target,
			size, reward_risk, risk_percent, accepted, rejection_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		assessment.SignalID,
		assessment.Symbol,
		string(assessment.SignalType),
		confidence,
		assessment.Entry,
		assessment.Stop,
		assessment.Target,
		assessment.Size,
		assessment.RewardRisk,
		assessment.RiskPercent,
		assessment.Accepted,
		assessment.RejectionReason,
	)
	return err
}

// RecordClose inserts one close-instruction row
func (db *DB) RecordClose(ctx context.Context, pos position.Position, reason string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO close_instructions (symbol, reason, correlation, elapsed_hours)
		VALUES ($1, $2, $3, $4)`,
		pos.Symbol,
		reason,
		pos.Correlation,
		pos.ElapsedHours,
	)
	return err
}

// RecentAssessments returns the newest decision rows for the status API
func (db *DB) RecentAssessments(ctx context.Context, limit int) ([]AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, signal_id, symbol, signal_type, confidence, entry, stop,
		       target, size, reward_risk, risk_percent, accepted,
		       COALESCE(rejection_reason, ''), created_at
		FROM assessments
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AssessmentRecord
	for rows.Next() {
		var rec AssessmentRecord
		if err := rows.Scan(
			&rec.ID, &rec.SignalID, &rec.Symbol, &rec.SignalType,
			&rec.Confidence, &rec.Entry, &rec.Stop, &rec.Target, &rec.Size,
			&rec.RewardRisk, &rec.RiskPercent, &rec.Accepted,
			&rec.RejectionReason, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
