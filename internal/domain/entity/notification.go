package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
)

// Notification запись во внутреннем почтовом ящике пользователя.
type Notification struct {
	ID         uuid.UUID                    `json:"id"`
	UserID     uuid.UUID                    `json:"user_id"`
	IncidentID *uuid.UUID                   `json:"incident_id,omitempty"`
	Title      string                       `json:"title"`
	Message    string                       `json:"message"`
	Type       valueobject.NotificationType `json:"type"`
	IsRead     bool                         `json:"is_read"`
	CreatedAt  time.Time                    `json:"created_at"`
}

// Photo фотография, прикреплённая к обращению.
type Photo struct {
	ID          uuid.UUID
	IncidentID  uuid.UUID
	FileName    string
	StoragePath string
	URL         string
	MimeType    string
	Size        int64
	CreatedAt   time.Time
}

// Действия, которые пишутся в историю обращения.
const (
	HistoryActionStatusChanged = "status_changed"
	HistoryActionAgentAssigned = "agent_assigned"
	HistoryActionReclassified  = "reclassified"
	HistoryActionClosed        = "closed"
)

// IncidentHistory запись аудита изменения обращения.
type IncidentHistory struct {
	ID         uuid.UUID
	IncidentID uuid.UUID
	UserID     *uuid.UUID
	Action     string
	OldValue   json.RawMessage
	NewValue   json.RawMessage
	CreatedAt  time.Time
}

// Report сгенерированный статистический отчёт.
type Report struct {
	ID          uuid.UUID
	Title       string
	Type        string
	Format      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	FilePath    string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

const (
	ReportTypeGeneralStatistics = "GENERAL_STATISTICS"
	ReportFormatCSV             = "CSV"
)

// Типы событий жизненного цикла обращения.
const (
	EventIncidentSubmitted = "incident.submitted"
	EventIncidentUpdated   = "incident.updated"
	EventStatusChanged     = "incident.status_changed"
	EventAgentAssigned     = "incident.agent_assigned"
	EventIncidentClosed    = "incident.closed"
)

// IncidentEvent доменное событие, которое публикуется после фиксации изменений.
type IncidentEvent struct {
	Type       string     `json:"type"`
	IncidentID uuid.UUID  `json:"incident_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	FromStatus string     `json:"from_status,omitempty"`
	ToStatus   string     `json:"to_status,omitempty"`
	AgentID    *uuid.UUID `json:"agent_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
