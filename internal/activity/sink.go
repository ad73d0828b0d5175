package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/models"
	"candidate-portal/internal/sheets"
)

// PostgresSink writes events to the activity table. Re-delivery of the same
// event is a no-op.
type PostgresSink struct {
	db    *sql.DB
	table string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, table: table}
}

func (s *PostgresSink) Deliver(ctx context.Context, e models.TrackedEvent) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("event data: %v", err))
	}
	occurred, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		occurred = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s (event_id, event_type, data, occurred_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`, s.table)

	if _, err := s.db.ExecContext(ctx, query, e.ID, string(e.Type), string(data), occurred); err != nil {
		return apperrors.NewStoreFailedError("activity insert", err)
	}
	return nil
}

// SheetSink appends events as rows of id, type, timestamp and JSON data.
type SheetSink struct {
	writer  sheets.Client
	rangeA1 string
}

func NewSheetSink(writer sheets.Client, rangeA1 string) *SheetSink {
	return &SheetSink{writer: writer, rangeA1: rangeA1}
}

func (s *SheetSink) Deliver(ctx context.Context, e models.TrackedEvent) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("event data: %v", err))
	}
	return s.writer.Append(ctx, s.rangeA1, [][]string{{e.ID, string(e.Type), e.Timestamp, string(data)}})
}
