package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

// incidentRow строка таблицы incidents.
type incidentRow struct {
	ID                uuid.UUID       `db:"id"`
	Title             string          `db:"title"`
	Description       string          `db:"description"`
	Category          string          `db:"category"`
	Status            string          `db:"status"`
	Priority          string          `db:"priority"`
	Address           string          `db:"address"`
	Latitude          sql.NullFloat64 `db:"latitude"`
	Longitude         sql.NullFloat64 `db:"longitude"`
	CitizenID         uuid.UUID       `db:"citizen_id"`
	AgentID           uuid.NullUUID   `db:"agent_id"`
	NeighborhoodID    uuid.NullUUID   `db:"neighborhood_id"`
	DepartmentID      uuid.NullUUID   `db:"department_id"`
	ResolvedAt        sql.NullTime    `db:"resolved_at"`
	ResolutionComment sql.NullString  `db:"resolution_comment"`
	Feedback          sql.NullString  `db:"feedback"`
	SatisfactionScore sql.NullInt32   `db:"satisfaction_score"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

const incidentColumns = `id, title, description, category, status, priority, address, latitude, longitude,
	citizen_id, agent_id, neighborhood_id, department_id, resolved_at, resolution_comment, feedback,
	satisfaction_score, created_at, updated_at`

func (r incidentRow) toEntity() *entity.Incident {
	i := &entity.Incident{
		ID:                r.ID,
		Title:             r.Title,
		Description:       r.Description,
		Category:          valueobject.Category(r.Category),
		Status:            valueobject.IncidentStatus(r.Status),
		Priority:          valueobject.Priority(r.Priority),
		Address:           r.Address,
		CitizenID:         r.CitizenID,
		AgentID:           fromNullUUID(r.AgentID),
		NeighborhoodID:    fromNullUUID(r.NeighborhoodID),
		DepartmentID:      fromNullUUID(r.DepartmentID),
		ResolutionComment: fromNullString(r.ResolutionComment),
		Feedback:          fromNullString(r.Feedback),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		i.Coordinates = &valueobject.Coordinates{Latitude: r.Latitude.Float64, Longitude: r.Longitude.Float64}
	}
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		i.ResolvedAt = &t
	}
	if r.SatisfactionScore.Valid {
		s := int(r.SatisfactionScore.Int32)
		i.SatisfactionScore = &s
	}
	return i
}

func incidentArgs(i *entity.Incident) []interface{} {
	var lat, lng sql.NullFloat64
	if i.Coordinates != nil {
		lat = sql.NullFloat64{Float64: i.Coordinates.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: i.Coordinates.Longitude, Valid: true}
	}
	var score sql.NullInt32
	if i.SatisfactionScore != nil {
		score = sql.NullInt32{Int32: int32(*i.SatisfactionScore), Valid: true}
	}
	var resolvedAt sql.NullTime
	if i.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *i.ResolvedAt, Valid: true}
	}
	return []interface{}{
		i.ID, i.Title, i.Description, string(i.Category), string(i.Status), string(i.Priority), i.Address,
		lat, lng, i.CitizenID, toNullUUID(i.AgentID), toNullUUID(i.NeighborhoodID), toNullUUID(i.DepartmentID),
		resolvedAt, toNullString(i.ResolutionComment), toNullString(i.Feedback), score, i.CreatedAt, i.UpdatedAt,
	}
}

// IncidentRepository хранилище обращений в PostgreSQL.
type IncidentRepository struct {
	db         *sqlx.DB
	users      *UserRepository
	references *ReferenceRepository
	photos     *PhotoRepository
}

func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{
		db:         db,
		users:      NewUserRepository(db),
		references: NewReferenceRepository(db),
		photos:     NewPhotoRepository(db),
	}
}

func (r *IncidentRepository) Create(ctx context.Context, i *entity.Incident) error {
	query := `INSERT INTO incidents (` + incidentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, incidentArgs(i)...); err != nil {
		return mapError(err, "incident", "create")
	}
	return nil
}

func (r *IncidentRepository) Update(ctx context.Context, i *entity.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2, description = $3, category = $4, status = $5, priority = $6, address = $7,
		    latitude = $8, longitude = $9, citizen_id = $10, agent_id = $11, neighborhood_id = $12,
		    department_id = $13, resolved_at = $14, resolution_comment = $15, feedback = $16,
		    satisfaction_score = $17, created_at = $18, updated_at = $19
		WHERE id = $1
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, incidentArgs(i)...)
	if err != nil {
		return mapError(err, "incident", "update")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "incident", "update rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("incident repository: update %s: %w", i.ID, sql.ErrNoRows)
	}
	return nil
}

func (r *IncidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	var row incidentRow
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "incident", "find by id")
	}
	return row.toEntity(), nil
}

// FindByIDWithDetails дозагружает все связи, чтобы вызывающий не видел частично загруженных данных.
func (r *IncidentRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	incident, err := r.FindByID(ctx, id)
	if err != nil || incident == nil {
		return incident, err
	}

	if incident.Citizen, err = r.users.FindByID(ctx, incident.CitizenID); err != nil {
		return nil, err
	}
	if incident.AgentID != nil {
		if incident.Agent, err = r.users.FindByID(ctx, *incident.AgentID); err != nil {
			return nil, err
		}
	}
	if incident.NeighborhoodID != nil {
		if incident.Neighborhood, err = r.references.FindNeighborhoodByID(ctx, *incident.NeighborhoodID); err != nil {
			return nil, err
		}
	}
	if incident.DepartmentID != nil {
		if incident.Department, err = r.references.FindDepartmentByID(ctx, *incident.DepartmentID); err != nil {
			return nil, err
		}
	}
	if incident.Photos, err = r.photos.ListByIncident(ctx, incident.ID); err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *IncidentRepository) ListByCitizen(ctx context.Context, citizenID uuid.UUID, page repository.Page) ([]*entity.Incident, int, error) {
	return r.listWhere(ctx, "citizen_id = $1", citizenID, page)
}

func (r *IncidentRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, page repository.Page) ([]*entity.Incident, int, error) {
	return r.listWhere(ctx, "agent_id = $1", agentID, page)
}

func (r *IncidentRepository) listWhere(ctx context.Context, where string, arg interface{}, page repository.Page) ([]*entity.Incident, int, error) {
	db := conn(ctx, r.db)

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM incidents WHERE `+where, arg); err != nil {
		return nil, 0, mapError(err, "incident", "count")
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE ` + where + ` ORDER BY created_at DESC`
	args := []interface{}{arg}
	query, args = paginate(query, args, page.Limit, page.Offset)

	var rows []incidentRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "incident", "list")
	}
	return toIncidents(rows), total, nil
}

// sortColumns белый список колонок сортировки.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"priority":   "priority",
	"category":   "category",
	"title":      "title",
}

func (r *IncidentRepository) Search(ctx context.Context, f repository.IncidentFilter) ([]*entity.Incident, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.Category != nil {
		add("category = $%d", string(*f.Category))
	}
	if f.NeighborhoodID != nil {
		add("neighborhood_id = $%d", *f.NeighborhoodID)
	}
	if f.DepartmentID != nil {
		add("department_id = $%d", *f.DepartmentID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(address) LIKE $%d)", n, n, n))
	}
	if f.OnlyWithCoordinates {
		conditions = append(conditions, "latitude IS NOT NULL AND longitude IS NOT NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	db := conn(ctx, r.db)
	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM incidents`+where, args...); err != nil {
		return nil, 0, mapError(err, "incident", "search count")
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		direction = "ASC"
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents` + where + ` ORDER BY ` + column + ` ` + direction
	query, args = paginate(query, args, f.Limit, f.Offset)

	var rows []incidentRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "incident", "search")
	}
	return toIncidents(rows), total, nil
}

func (r *IncidentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM incidents`); err != nil {
		return 0, mapError(err, "incident", "count")
	}
	return total, nil
}

type groupCount struct {
	Key   sql.NullString `db:"key"`
	Count int            `db:"count"`
}

func (r *IncidentRepository) groupBy(ctx context.Context, query, op string) ([]groupCount, error) {
	var rows []groupCount
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError(err, "incident", op)
	}
	return rows, nil
}

func (r *IncidentRepository) CountByStatus(ctx context.Context) (map[valueobject.IncidentStatus]int, error) {
	rows, err := r.groupBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM incidents GROUP BY status`, "count by status")
	if err != nil {
		return nil, err
	}
	result := make(map[valueobject.IncidentStatus]int, len(rows))
	for _, row := range rows {
		result[valueobject.IncidentStatus(row.Key.String)] = row.Count
	}
	return result, nil
}

func (r *IncidentRepository) CountByCategory(ctx context.Context) (map[valueobject.Category]int, error) {
	rows, err := r.groupBy(ctx, `SELECT category AS key, COUNT(*) AS count FROM incidents GROUP BY category`, "count by category")
	if err != nil {
		return nil, err
	}
	result := make(map[valueobject.Category]int, len(rows))
	for _, row := range rows {
		result[valueobject.Category(row.Key.String)] = row.Count
	}
	return result, nil
}

func (r *IncidentRepository) CountByNeighborhood(ctx context.Context) ([]repository.NeighborhoodCount, error) {
	rows, err := r.groupBy(ctx, `
		SELECT n.name AS key, COUNT(*) AS count
		FROM incidents i
		LEFT JOIN neighborhoods n ON n.id = i.neighborhood_id
		GROUP BY n.name
	`, "count by neighborhood")
	if err != nil {
		return nil, err
	}
	result := make([]repository.NeighborhoodCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, repository.NeighborhoodCount{Name: fromNullString(row.Key), Count: row.Count})
	}
	return result, nil
}

func (r *IncidentRepository) FindCreatedBetween(ctx context.Context, start, end time.Time) ([]*entity.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at`
	var rows []incidentRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, mapError(err, "incident", "find created between")
	}
	return toIncidents(rows), nil
}

func toIncidents(rows []incidentRow) []*entity.Incident {
	result := make([]*entity.Incident, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toEntity())
	}
	return result
}
