package valueobject

import "github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"

// IncidentStatus статус обращения в жизненном цикле.
type IncidentStatus string

const (
	IncidentStatusReported   IncidentStatus = "REPORTED"
	IncidentStatusAssigned   IncidentStatus = "ASSIGNED"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusClosed     IncidentStatus = "CLOSED"
)

// incidentTransitions таблица допустимых переходов: текущий статус -> следующие.
var incidentTransitions = map[IncidentStatus][]IncidentStatus{
	IncidentStatusReported:   {IncidentStatusAssigned},
	IncidentStatusAssigned:   {IncidentStatusInProgress, IncidentStatusReported},
	IncidentStatusInProgress: {IncidentStatusResolved, IncidentStatusAssigned},
	IncidentStatusResolved:   {IncidentStatusClosed, IncidentStatusInProgress},
	IncidentStatusClosed:     {},
}

// statusMessages текст уведомления гражданину по новому статусу.
var statusMessages = map[IncidentStatus]string{
	IncidentStatusAssigned:   "Your report has been taken in charge",
	IncidentStatusInProgress: "An intervention is under way for your report",
	IncidentStatusResolved:   "Your report has been resolved, please give feedback",
	IncidentStatusClosed:     "Your report has been closed",
}

const genericStatusMessage = "Your report has been updated"

// AllIncidentStatuses возвращает все статусы в порядке жизненного цикла.
func AllIncidentStatuses() []IncidentStatus {
	return []IncidentStatus{
		IncidentStatusReported,
		IncidentStatusAssigned,
		IncidentStatusInProgress,
		IncidentStatusResolved,
		IncidentStatusClosed,
	}
}

func (s IncidentStatus) IsValid() bool {
	_, ok := incidentTransitions[s]
	return ok
}

// CanTransitionTo проверяет наличие пары в таблице переходов.
func (s IncidentStatus) CanTransitionTo(newStatus IncidentStatus) bool {
	for _, status := range incidentTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// AllowedTransitions возвращает копию списка допустимых следующих статусов.
func (s IncidentStatus) AllowedTransitions() []IncidentStatus {
	allowed := incidentTransitions[s]
	out := make([]IncidentStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal true для статуса без исходящих переходов.
func (s IncidentStatus) IsTerminal() bool {
	return s.IsValid() && len(incidentTransitions[s]) == 0
}

// IsResolvedOrLater true для RESOLVED и CLOSED.
func (s IncidentStatus) IsResolvedOrLater() bool {
	return s == IncidentStatusResolved || s == IncidentStatusClosed
}

// StatusChangeMessage человекочитаемое сообщение для уведомления о смене статуса.
func (s IncidentStatus) StatusChangeMessage() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return genericStatusMessage
}

func NewIncidentStatus(status string) (IncidentStatus, error) {
	s := IncidentStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("invalid incident status: " + status)
	}
	return s, nil
}
