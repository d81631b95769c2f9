package persistence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
)

type departmentRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
}

func (r departmentRow) toEntity() entity.Department {
	return entity.Department{ID: r.ID, Name: r.Name, Description: fromNullString(r.Description)}
}

type neighborhoodRow struct {
	ID         uuid.UUID      `db:"id"`
	Name       string         `db:"name"`
	PostalCode sql.NullString `db:"postal_code"`
}

func (r neighborhoodRow) toEntity() entity.Neighborhood {
	return entity.Neighborhood{ID: r.ID, Name: r.Name, PostalCode: fromNullString(r.PostalCode)}
}

// ReferenceRepository справочники департаментов и кварталов.
type ReferenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) FindDepartmentByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	var row departmentRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT id, name, description FROM departments WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "reference", "find department")
	}
	d := row.toEntity()
	return &d, nil
}

func (r *ReferenceRepository) FindNeighborhoodByID(ctx context.Context, id uuid.UUID) (*entity.Neighborhood, error) {
	var row neighborhoodRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT id, name, postal_code FROM neighborhoods WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "reference", "find neighborhood")
	}
	n := row.toEntity()
	return &n, nil
}

func (r *ReferenceRepository) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	var rows []departmentRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT id, name, description FROM departments ORDER BY name`); err != nil {
		return nil, mapError(err, "reference", "list departments")
	}
	result := make([]entity.Department, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toEntity())
	}
	return result, nil
}

func (r *ReferenceRepository) ListNeighborhoods(ctx context.Context) ([]entity.Neighborhood, error) {
	var rows []neighborhoodRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, `SELECT id, name, postal_code FROM neighborhoods ORDER BY name`); err != nil {
		return nil, mapError(err, "reference", "list neighborhoods")
	}
	result := make([]entity.Neighborhood, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toEntity())
	}
	return result, nil
}

func (r *ReferenceRepository) EnsureDepartment(ctx context.Context, name, description string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO departments (id, name, description) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		uuid.New(), name, description)
	return mapError(err, "reference", "ensure department")
}

func (r *ReferenceRepository) EnsureNeighborhood(ctx context.Context, name, postalCode string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO neighborhoods (id, name, postal_code) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		uuid.New(), name, postalCode)
	return mapError(err, "reference", "ensure neighborhood")
}
