package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

type userRow struct {
	ID           uuid.UUID      `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Phone        sql.NullString `db:"phone"`
	Address      sql.NullString `db:"address"`
	Role         string         `db:"role"`
	DepartmentID uuid.NullUUID  `db:"department_id"`
	Active       bool           `db:"active"`
	PasswordHash string         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
}

const userColumns = `id, first_name, last_name, email, phone, address, role, department_id, active, password_hash, created_at`

func (r userRow) toEntity() *entity.User {
	return &entity.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        fromNullString(r.Phone),
		Address:      fromNullString(r.Address),
		Role:         valueobject.Role(r.Role),
		DepartmentID: fromNullUUID(r.DepartmentID),
		Active:       r.Active,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт пользователя; e-mail хранится в нижнем регистре.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		u.ID, u.FirstName, u.LastName, strings.ToLower(u.Email), toNullString(u.Phone), toNullString(u.Address),
		string(u.Role), toNullUUID(u.DepartmentID), u.Active, u.PasswordHash,
	).Scan(&u.CreatedAt); err != nil {
		return mapError(err, "user", "create")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id, "find by id")
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)), "find by email")
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}, op string) (*entity.User, error) {
	var row userRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, arg); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "user", op)
	}
	return row.toEntity(), nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role valueobject.Role, page repository.Page) ([]*entity.User, int, error) {
	db := conn(ctx, r.db)

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)); err != nil {
		return nil, 0, mapError(err, "user", "count by role")
	}

	query, args := paginate(`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY last_name, first_name`,
		[]interface{}{string(role)}, page.Limit, page.Offset)

	var rows []userRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "user", "list by role")
	}
	users := make([]*entity.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toEntity())
	}
	return users, total, nil
}
