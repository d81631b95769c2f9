package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

type notificationRow struct {
	ID         uuid.UUID     `db:"id"`
	UserID     uuid.UUID     `db:"user_id"`
	IncidentID uuid.NullUUID `db:"incident_id"`
	Title      string        `db:"title"`
	Message    string        `db:"message"`
	Type       string        `db:"type"`
	IsRead     bool          `db:"is_read"`
	CreatedAt  time.Time     `db:"created_at"`
}

func (r notificationRow) toEntity() entity.Notification {
	return entity.Notification{
		ID:         r.ID,
		UserID:     r.UserID,
		IncidentID: fromNullUUID(r.IncidentID),
		Title:      r.Title,
		Message:    r.Message,
		Type:       valueobject.NotificationType(r.Type),
		IsRead:     r.IsRead,
		CreatedAt:  r.CreatedAt,
	}
}

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление; id и created_at выдаёт база.
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (user_id, incident_id, title, message, type, is_read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query,
		n.UserID, toNullUUID(n.IncidentID), n.Title, n.Message, string(n.Type), n.IsRead,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return mapError(err, "notification", "create")
	}
	return nil
}

// GetByID возвращает уведомление или nil, если его нет.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	var row notificationRow
	if err := conn(ctx, r.db).GetContext(ctx, &row, `SELECT * FROM notifications WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError(err, "notification", "get by id")
	}
	n := row.toEntity()
	return &n, nil
}

// List возвращает список уведомлений пользователя с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, page repository.Page, unreadOnly bool) ([]entity.Notification, int, error) {
	where := ` WHERE user_id = $1`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	db := conn(ctx, r.db)
	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`+where, userID); err != nil {
		return nil, 0, mapError(err, "notification", "count")
	}

	query, args := paginate(`SELECT * FROM notifications`+where+` ORDER BY created_at DESC`,
		[]interface{}{userID}, page.Limit, page.Offset)

	var rows []notificationRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "notification", "list")
	}
	result := make([]entity.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toEntity())
	}
	return result, total, nil
}

// MarkAsRead отмечает уведомление как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	return mapError(err, "notification", "mark as read")
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	return mapError(err, "notification", "mark all as read")
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, mapError(err, "notification", "count unread")
	}
	return count, nil
}
