package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
)

type photoRow struct {
	ID          uuid.UUID `db:"id"`
	IncidentID  uuid.UUID `db:"incident_id"`
	FileName    string    `db:"file_name"`
	StoragePath string    `db:"storage_path"`
	URL         string    `db:"url"`
	MimeType    string    `db:"mime_type"`
	Size        int64     `db:"size"`
	CreatedAt   time.Time `db:"created_at"`
}

// PhotoRepository фотографии обращений.
type PhotoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(ctx context.Context, p *entity.Photo) error {
	query := `
		INSERT INTO incident_photos (id, incident_id, file_name, storage_path, url, mime_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.IncidentID, p.FileName, p.StoragePath, p.URL, p.MimeType, p.Size, p.CreatedAt)
	return mapError(err, "photo", "create")
}

func (r *PhotoRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.Photo, error) {
	var rows []photoRow
	query := `
		SELECT id, incident_id, file_name, storage_path, url, mime_type, size, created_at
		FROM incident_photos
		WHERE incident_id = $1
		ORDER BY created_at
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, incidentID); err != nil {
		return nil, mapError(err, "photo", "list by incident")
	}
	photos := make([]entity.Photo, 0, len(rows))
	for _, row := range rows {
		photos = append(photos, entity.Photo(row))
	}
	return photos, nil
}

type historyRow struct {
	ID         uuid.UUID     `db:"id"`
	IncidentID uuid.UUID     `db:"incident_id"`
	UserID     uuid.NullUUID `db:"user_id"`
	Action     string        `db:"action"`
	OldValue   []byte        `db:"old_value"`
	NewValue   []byte        `db:"new_value"`
	CreatedAt  time.Time     `db:"created_at"`
}

// IncidentHistoryRepository журнал изменений обращений.
type IncidentHistoryRepository struct {
	db *sqlx.DB
}

func NewIncidentHistoryRepository(db *sqlx.DB) *IncidentHistoryRepository {
	return &IncidentHistoryRepository{db: db}
}

// Add добавляет запись в историю; пустые значения пишутся как NULL.
func (r *IncidentHistoryRepository) Add(ctx context.Context, e *entity.IncidentHistory) error {
	query := `
		INSERT INTO incident_history (id, incident_id, user_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		e.ID, e.IncidentID, toNullUUID(e.UserID), e.Action, nullJSON(e.OldValue), nullJSON(e.NewValue), e.CreatedAt)
	return mapError(err, "incident history", "add")
}

func (r *IncidentHistoryRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.IncidentHistory, error) {
	var rows []historyRow
	query := `
		SELECT id, incident_id, user_id, action, old_value, new_value, created_at
		FROM incident_history
		WHERE incident_id = $1
		ORDER BY created_at
	`
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, incidentID); err != nil {
		return nil, mapError(err, "incident history", "list by incident")
	}
	result := make([]entity.IncidentHistory, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.IncidentHistory{
			ID:         row.ID,
			IncidentID: row.IncidentID,
			UserID:     fromNullUUID(row.UserID),
			Action:     row.Action,
			OldValue:   json.RawMessage(row.OldValue),
			NewValue:   json.RawMessage(row.NewValue),
			CreatedAt:  row.CreatedAt,
		})
	}
	return result, nil
}

// nullJSON lib/pq передаёт []byte как bytea, поэтому jsonb пишется строкой.
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
