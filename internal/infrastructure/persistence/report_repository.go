package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
)

type reportRow struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Type        string    `db:"type"`
	Format      string    `db:"format"`
	PeriodStart time.Time `db:"period_start"`
	PeriodEnd   time.Time `db:"period_end"`
	FilePath    string    `db:"file_path"`
	CreatedBy   uuid.UUID `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

const reportColumns = `id, title, type, format, period_start, period_end, file_path, created_by, created_at`

// ReportRepository записи о сгенерированных отчётах.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *entity.Report) error {
	query := `INSERT INTO reports (` + reportColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		rep.ID, rep.Title, rep.Type, rep.Format, rep.PeriodStart, rep.PeriodEnd, rep.FilePath, rep.CreatedBy, rep.CreatedAt)
	return mapError(err, "report", "create")
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var row reportRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "report", "get by id")
	}
	rep := entity.Report(row)
	return &rep, nil
}

func (r *ReportRepository) List(ctx context.Context, page repository.Page) ([]entity.Report, int, error) {
	db := conn(ctx, r.db)

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reports`); err != nil {
		return nil, 0, mapError(err, "report", "count")
	}

	query, args := paginate(`SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC`, nil, page.Limit, page.Offset)
	var rows []reportRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "report", "list")
	}
	result := make([]entity.Report, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.Report(row))
	}
	return result, total, nil
}
