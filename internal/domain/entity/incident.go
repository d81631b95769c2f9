package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/validation"
)

// Incident обращение гражданина о проблеме в городе.
type Incident struct {
	ID          uuid.UUID
	Title       string
	Description string
	Category    valueobject.Category
	Status      valueobject.IncidentStatus
	Priority    valueobject.Priority
	Address     string
	Coordinates *valueobject.Coordinates

	CitizenID      uuid.UUID
	AgentID        *uuid.UUID
	NeighborhoodID *uuid.UUID
	DepartmentID   *uuid.UUID

	ResolvedAt        *time.Time
	ResolutionComment *string
	Feedback          *string
	SatisfactionScore *int

	CreatedAt time.Time
	UpdatedAt time.Time

	// Заполняются только при загрузке с деталями.
	Citizen      *User
	Agent        *User
	Neighborhood *Neighborhood
	Department   *Department
	Photos       []Photo
}

// NewIncidentParams данные для создания обращения.
type NewIncidentParams struct {
	CitizenID      uuid.UUID
	Title          string
	Description    string
	Category       valueobject.Category
	Priority       valueobject.Priority
	Address        string
	Coordinates    *valueobject.Coordinates
	NeighborhoodID *uuid.UUID
}

// NewIncident создаёт обращение в статусе REPORTED.
func NewIncident(p NewIncidentParams, now time.Time) (*Incident, error) {
	if err := ValidateTitle(p.Title); err != nil {
		return nil, err
	}
	if err := ValidateDescription(p.Description); err != nil {
		return nil, err
	}
	if err := ValidateAddress(p.Address); err != nil {
		return nil, err
	}
	if !p.Category.IsValid() {
		return nil, apperror.Validation("invalid incident category")
	}
	priority := p.Priority
	if priority == "" {
		priority = valueobject.DefaultPriority
	}
	if !priority.IsValid() {
		return nil, apperror.Validation("invalid incident priority")
	}

	return &Incident{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(p.Title),
		Description:    strings.TrimSpace(p.Description),
		Category:       p.Category,
		Status:         valueobject.IncidentStatusReported,
		Priority:       priority,
		Address:        strings.TrimSpace(p.Address),
		Coordinates:    p.Coordinates,
		CitizenID:      p.CitizenID,
		NeighborhoodID: p.NeighborhoodID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateTitle проверяет заголовок обращения.
func ValidateTitle(title string) error {
	return asValidation(validateText("title", title, validation.MaxIncidentTitleLength))
}

// ValidateDescription проверяет описание обращения.
func ValidateDescription(description string) error {
	return asValidation(validateText("description", description, validation.MaxIncidentDescriptionLength))
}

// ValidateAddress проверяет адрес обращения.
func ValidateAddress(address string) error {
	return asValidation(validateText("address", address, validation.MaxIncidentAddressLength))
}

func validateText(field, value string, max int) error {
	if err := validation.ValidateNonEmpty(field, value); err != nil {
		return err
	}
	return validation.ValidateLength(field, strings.TrimSpace(value), 0, max)
}

func asValidation(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Validation(err.Error())
}

// TransitionTo переводит обращение в новый статус по таблице переходов.
// При входе в RESOLVED фиксируются время и комментарий решения,
// при возврате из RESOLVED в работу они сбрасываются.
func (i *Incident) TransitionTo(next valueobject.IncidentStatus, resolutionComment *string, now time.Time) error {
	if !i.Status.CanTransitionTo(next) {
		return apperror.InvalidTransition(string(i.Status), string(next))
	}

	switch {
	case next == valueobject.IncidentStatusResolved:
		resolvedAt := now
		i.ResolvedAt = &resolvedAt
		i.ResolutionComment = resolutionComment
	case !next.IsResolvedOrLater():
		i.ResolvedAt = nil
		i.ResolutionComment = nil
	}

	i.Status = next
	i.UpdatedAt = now
	return nil
}

// Close закрывает решённое обращение с отзывом гражданина.
func (i *Incident) Close(feedback *string, score *int, now time.Time) error {
	if err := ValidateSatisfactionScore(score); err != nil {
		return err
	}
	if i.Status != valueobject.IncidentStatusResolved {
		return apperror.New(apperror.ErrCodeIllegalOperation, "only a resolved incident can be closed")
	}

	i.Status = valueobject.IncidentStatusClosed
	i.Feedback = feedback
	i.SatisfactionScore = score
	i.UpdatedAt = now
	return nil
}

// ValidateSatisfactionScore оценка необязательна, но если задана, то от 1 до 5.
func ValidateSatisfactionScore(score *int) error {
	if score == nil {
		return nil
	}
	if *score < validation.MinSatisfactionScore || *score > validation.MaxSatisfactionScore {
		return apperror.Validation("satisfaction score must be between 1 and 5")
	}
	return nil
}

// AssignAgent назначает агента и переносит его департамент на обращение.
// Возвращает true, если исполнитель действительно сменился.
func (i *Incident) AssignAgent(agent *User, now time.Time) (bool, error) {
	if agent == nil {
		return false, apperror.Validation("agent is required")
	}
	if agent.Role != valueobject.RoleMunicipalAgent {
		return false, apperror.Validation("assigned user is not a municipal agent")
	}
	if i.AgentID != nil && *i.AgentID == agent.ID {
		return false, nil
	}

	agentID := agent.ID
	i.AgentID = &agentID
	i.Agent = agent
	if agent.DepartmentID != nil {
		departmentID := *agent.DepartmentID
		i.DepartmentID = &departmentID
		i.Department = nil
	}
	i.UpdatedAt = now
	return true, nil
}

// DetailsUpdate проверенные изменения классификации; nil означает "без изменений".
type DetailsUpdate struct {
	Title          *string
	Description    *string
	Category       *valueobject.Category
	Priority       *valueobject.Priority
	Address        *string
	Coordinates    *valueobject.Coordinates
	NeighborhoodID *uuid.UUID
	DepartmentID   *uuid.UUID
}

// IsEmpty true, если ни одно поле не задано.
func (d DetailsUpdate) IsEmpty() bool {
	return d.Title == nil && d.Description == nil && d.Category == nil && d.Priority == nil &&
		d.Address == nil && d.Coordinates == nil && d.NeighborhoodID == nil && d.DepartmentID == nil
}

// ApplyDetails применяет изменения и сообщает, изменилось ли что-нибудь.
func (i *Incident) ApplyDetails(d DetailsUpdate, now time.Time) bool {
	changed := false

	if d.Title != nil && strings.TrimSpace(*d.Title) != i.Title {
		i.Title = strings.TrimSpace(*d.Title)
		changed = true
	}
	if d.Description != nil && strings.TrimSpace(*d.Description) != i.Description {
		i.Description = strings.TrimSpace(*d.Description)
		changed = true
	}
	if d.Category != nil && *d.Category != i.Category {
		i.Category = *d.Category
		changed = true
	}
	if d.Priority != nil && *d.Priority != i.Priority {
		i.Priority = *d.Priority
		changed = true
	}
	if d.Address != nil && strings.TrimSpace(*d.Address) != i.Address {
		i.Address = strings.TrimSpace(*d.Address)
		changed = true
	}
	if d.Coordinates != nil && !d.Coordinates.Equal(i.Coordinates) {
		coords := *d.Coordinates
		i.Coordinates = &coords
		changed = true
	}
	if d.NeighborhoodID != nil && !sameID(i.NeighborhoodID, d.NeighborhoodID) {
		id := *d.NeighborhoodID
		i.NeighborhoodID = &id
		i.Neighborhood = nil
		changed = true
	}
	if d.DepartmentID != nil && !sameID(i.DepartmentID, d.DepartmentID) {
		id := *d.DepartmentID
		i.DepartmentID = &id
		i.Department = nil
		changed = true
	}

	if changed {
		i.UpdatedAt = now
	}
	return changed
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (i *Incident) IsOwnedBy(userID uuid.UUID) bool {
	return i.CitizenID == userID
}

func (i *Incident) IsAssignedTo(userID uuid.UUID) bool {
	return i.AgentID != nil && *i.AgentID == userID
}

// HasOtherAgent true, если обращение закреплено за другим агентом.
func (i *Incident) HasOtherAgent(userID uuid.UUID) bool {
	return i.AgentID != nil && *i.AgentID != userID
}
