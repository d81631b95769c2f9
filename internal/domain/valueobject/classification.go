package valueobject

import "github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"

// Category категория обращения.
type Category string

const (
	CategoryInfrastructure  Category = "INFRASTRUCTURE"
	CategoryCleanliness     Category = "CLEANLINESS"
	CategorySecurity        Category = "SECURITY"
	CategorySignage         Category = "SIGNAGE"
	CategoryLighting        Category = "LIGHTING"
	CategoryWaterSanitation Category = "WATER_SANITATION"
	CategoryOther           Category = "OTHER"
)

func AllCategories() []Category {
	return []Category{
		CategoryInfrastructure,
		CategoryCleanliness,
		CategorySecurity,
		CategorySignage,
		CategoryLighting,
		CategoryWaterSanitation,
		CategoryOther,
	}
}

func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func NewCategory(category string) (Category, error) {
	c := Category(category)
	if !c.IsValid() {
		return "", apperror.Validation("invalid incident category: " + category)
	}
	return c, nil
}

// Priority приоритет обращения.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// DefaultPriority используется, когда гражданин не указал приоритет.
const DefaultPriority = PriorityMedium

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NewPriority разбирает приоритет, пустая строка даёт приоритет по умолчанию.
func NewPriority(priority string) (Priority, error) {
	if priority == "" {
		return DefaultPriority, nil
	}
	p := Priority(priority)
	if !p.IsValid() {
		return "", apperror.Validation("invalid incident priority: " + priority)
	}
	return p, nil
}

// Role роль пользователя.
type Role string

const (
	RoleCitizen        Role = "CITIZEN"
	RoleMunicipalAgent Role = "MUNICIPAL_AGENT"
	RoleAdministrator  Role = "ADMINISTRATOR"
	RoleSuperAdmin     Role = "SUPERADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleMunicipalAgent, RoleAdministrator, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin true для ролей, которым разрешено переклассифицировать и переназначать обращения.
func (r Role) IsAdmin() bool {
	return r == RoleAdministrator || r == RoleSuperAdmin
}

func (r Role) IsAgent() bool {
	return r == RoleMunicipalAgent
}

func (r Role) IsStaff() bool {
	return r.IsAgent() || r.IsAdmin()
}

// NotificationType тип уведомления.
type NotificationType string

const (
	NotificationIncidentCreated  NotificationType = "INCIDENT_CREATED"
	NotificationIncidentAssigned NotificationType = "INCIDENT_ASSIGNED"
	NotificationIncidentUpdated  NotificationType = "INCIDENT_UPDATED"
	NotificationIncidentResolved NotificationType = "INCIDENT_RESOLVED"
	NotificationIncidentClosed   NotificationType = "INCIDENT_CLOSED"
	NotificationOther            NotificationType = "OTHER"
)

// NotificationTypeForStatus тип уведомления гражданину о переходе в статус.
func NotificationTypeForStatus(s IncidentStatus) NotificationType {
	switch s {
	case IncidentStatusResolved:
		return NotificationIncidentResolved
	case IncidentStatusClosed:
		return NotificationIncidentClosed
	default:
		return NotificationIncidentUpdated
	}
}
