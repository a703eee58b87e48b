package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// EventRepo appends audit events (submits, re-grades, sweeps) to the
// event_log table. Satisfies exam.EventSink.
type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(payload), time.Now().Unix())
	return err
}
