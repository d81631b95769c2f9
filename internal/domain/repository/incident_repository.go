package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

type IncidentRepository interface {
	Create(ctx context.Context, incident *entity.Incident) error
	Update(ctx context.Context, incident *entity.Incident) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Incident, error)
	// FindByIDWithDetails загружает гражданина, агента, квартал, департамент и фото.
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*entity.Incident, error)
	ListByCitizen(ctx context.Context, citizenID uuid.UUID, page Page) ([]*entity.Incident, int, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, page Page) ([]*entity.Incident, int, error)
	Search(ctx context.Context, filter IncidentFilter) ([]*entity.Incident, int, error)

	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[valueobject.IncidentStatus]int, error)
	CountByCategory(ctx context.Context) (map[valueobject.Category]int, error)
	// CountByNeighborhood ключ nil соответствует обращениям без квартала.
	CountByNeighborhood(ctx context.Context) ([]NeighborhoodCount, error)
	FindCreatedBetween(ctx context.Context, start, end time.Time) ([]*entity.Incident, error)
}

// NeighborhoodCount количество обращений в квартале; Name == nil для обращений без квартала.
type NeighborhoodCount struct {
	Name  *string
	Count int
}

// Page параметры постраничной выборки.
type Page struct {
	Limit  int
	Offset int
}

// IncidentFilter критерии поиска обращений.
type IncidentFilter struct {
	Status         *valueobject.IncidentStatus
	Category       *valueobject.Category
	NeighborhoodID *uuid.UUID
	DepartmentID   *uuid.UUID
	From           *time.Time
	To             *time.Time
	Query          string
	// OnlyWithCoordinates используется выгрузкой для карты.
	OnlyWithCoordinates bool
	SortBy              string
	SortDir             string
	Limit               int
	Offset              int
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByRole(ctx context.Context, role valueobject.Role, page Page) ([]*entity.User, int, error)
}

type ReferenceRepository interface {
	FindDepartmentByID(ctx context.Context, id uuid.UUID) (*entity.Department, error)
	FindNeighborhoodByID(ctx context.Context, id uuid.UUID) (*entity.Neighborhood, error)
	ListDepartments(ctx context.Context) ([]entity.Department, error)
	ListNeighborhoods(ctx context.Context) ([]entity.Neighborhood, error)
	// EnsureDepartment и EnsureNeighborhood создают запись, если её ещё нет по имени.
	EnsureDepartment(ctx context.Context, name, description string) error
	EnsureNeighborhood(ctx context.Context, name, postalCode string) error
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *entity.Photo) error
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.Photo, error)
}

type IncidentHistoryRepository interface {
	Add(ctx context.Context, entry *entity.IncidentHistory) error
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.IncidentHistory, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	List(ctx context.Context, userID uuid.UUID, page Page, unreadOnly bool) ([]entity.Notification, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	List(ctx context.Context, page Page) ([]entity.Report, int, error)
}

// Transactor выполняет функцию в одной транзакции хранилища.
// Репозитории, вызванные с переданным контекстом, работают внутри неё.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
