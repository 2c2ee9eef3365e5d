package queries

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/OldStager01/smart-pump/pkg/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, e *models.Event) error {
	var data []byte
	if e.Data != nil {
		var err error
		data, err = json.Marshal(e.Data)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO pump_events (id, event_type, severity, cycle, message, data, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Type), string(e.Severity), e.Cycle, e.Message, nullJSON(data), e.Timestamp,
	)
	return err
}

func nullJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
