package incident

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/validation"
)

// GetIncidentUseCase загружает обращение со всеми связями.
type GetIncidentUseCase struct {
	incidents repository.IncidentRepository
}

func NewGetIncidentUseCase(incidents repository.IncidentRepository) *GetIncidentUseCase {
	return &GetIncidentUseCase{incidents: incidents}
}

func (uc *GetIncidentUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	incident, err := uc.incidents.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperror.NotFound("incident", id)
	}
	return incident, nil
}

// ListIncidentsOutput страница обращений.
type ListIncidentsOutput struct {
	Incidents []*entity.Incident
	Total     int
}

type ListByCitizenUseCase struct {
	incidents repository.IncidentRepository
}

func NewListByCitizenUseCase(incidents repository.IncidentRepository) *ListByCitizenUseCase {
	return &ListByCitizenUseCase{incidents: incidents}
}

func (uc *ListByCitizenUseCase) Execute(ctx context.Context, citizenID uuid.UUID, page repository.Page) (*ListIncidentsOutput, error) {
	items, total, err := uc.incidents.ListByCitizen(ctx, citizenID, page)
	if err != nil {
		return nil, err
	}
	return &ListIncidentsOutput{Incidents: items, Total: total}, nil
}

type ListByAgentUseCase struct {
	incidents repository.IncidentRepository
}

func NewListByAgentUseCase(incidents repository.IncidentRepository) *ListByAgentUseCase {
	return &ListByAgentUseCase{incidents: incidents}
}

func (uc *ListByAgentUseCase) Execute(ctx context.Context, agentID uuid.UUID, page repository.Page) (*ListIncidentsOutput, error) {
	items, total, err := uc.incidents.ListByAgent(ctx, agentID, page)
	if err != nil {
		return nil, err
	}
	return &ListIncidentsOutput{Incidents: items, Total: total}, nil
}

// SearchIncidentsUseCase поиск по критериям; сортировку и страницу задаёт вызывающий.
type SearchIncidentsUseCase struct {
	incidents repository.IncidentRepository
}

func NewSearchIncidentsUseCase(incidents repository.IncidentRepository) *SearchIncidentsUseCase {
	return &SearchIncidentsUseCase{incidents: incidents}
}

func (uc *SearchIncidentsUseCase) Execute(ctx context.Context, filter repository.IncidentFilter) (*ListIncidentsOutput, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if err := validation.ValidateLength("query", filter.Query, 0, validation.MaxSearchQueryLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperror.Validation("end date must not be before start date")
	}
	items, total, err := uc.incidents.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListIncidentsOutput{Incidents: items, Total: total}, nil
}

// ListHistoryUseCase журнал изменений обращения.
type ListHistoryUseCase struct {
	incidents repository.IncidentRepository
	history   repository.IncidentHistoryRepository
}

func NewListHistoryUseCase(incidents repository.IncidentRepository, history repository.IncidentHistoryRepository) *ListHistoryUseCase {
	return &ListHistoryUseCase{incidents: incidents, history: history}
}

func (uc *ListHistoryUseCase) Execute(ctx context.Context, incidentID uuid.UUID) ([]entity.IncidentHistory, error) {
	incident, err := uc.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperror.NotFound("incident", incidentID)
	}
	return uc.history.ListByIncident(ctx, incidentID)
}
