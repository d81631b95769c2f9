package incident

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/validation"
)

// ApplyUpdateInput частичное обновление: nil означает "без изменений".
type ApplyUpdateInput struct {
	IncidentID        uuid.UUID
	ActorID           uuid.UUID
	Title             *string
	Description       *string
	Category          *string
	Priority          *string
	Address           *string
	Latitude          *float64
	Longitude         *float64
	NeighborhoodID    *uuid.UUID
	DepartmentID      *uuid.UUID
	AgentID           *uuid.UUID
	Status            *string
	ResolutionComment *string
	Photos            []PhotoUpload
}

// touchesClassification true, если запрос меняет поля, доступные только администраторам.
func (in ApplyUpdateInput) touchesClassification() bool {
	return in.Title != nil || in.Description != nil || in.Category != nil || in.Priority != nil ||
		in.Address != nil || in.Latitude != nil || in.Longitude != nil ||
		in.NeighborhoodID != nil || in.DepartmentID != nil || in.AgentID != nil
}

// parsedUpdate проверенный запрос, готовый к применению.
type parsedUpdate struct {
	details entity.DetailsUpdate
	status  *valueobject.IncidentStatus
}

type ApplyUpdateUseCase struct {
	workflow
}

func NewApplyUpdateUseCase(deps Dependencies) *ApplyUpdateUseCase {
	return &ApplyUpdateUseCase{workflow: newWorkflow(deps)}
}

// updateOutcome побочные эффекты, которые выполняются после фиксации.
type updateOutcome struct {
	oldStatus     valueobject.IncidentStatus
	assignedAgent *entity.User
	changed       bool
}

// Execute применяет изменения агента или администратора к обращению.
func (uc *ApplyUpdateUseCase) Execute(ctx context.Context, input ApplyUpdateInput) (*entity.Incident, error) {
	parsed, err := parseUpdate(input)
	if err != nil {
		return nil, err
	}

	var (
		incident *entity.Incident
		outcome  updateOutcome
	)
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		incident, err = uc.loadIncident(ctx, input.IncidentID)
		if err != nil {
			return err
		}
		actor, err := uc.loadUser(ctx, "user", input.ActorID)
		if err != nil {
			return err
		}
		if err := authorizeUpdate(actor, incident, input); err != nil {
			return err
		}

		outcome, err = uc.apply(ctx, incident, actor, input, parsed)
		if err != nil {
			return err
		}
		if !outcome.changed {
			return nil
		}
		if err := uc.deps.Incidents.Update(ctx, incident); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to update incident")
		}
		return uc.recordUpdate(ctx, incident, actor.ID, outcome)
	})
	if err != nil {
		return nil, err
	}

	uc.attachPhotos(ctx, incident, input.Photos)
	uc.dispatch(ctx, incident, input.ActorID, outcome)
	return incident, nil
}

// authorizeUpdate проверяет права роли на запрошенные изменения.
func authorizeUpdate(actor *entity.User, incident *entity.Incident, input ApplyUpdateInput) error {
	switch {
	case actor.Role.IsAdmin():
		return nil
	case actor.Role.IsAgent():
		if incident.HasOtherAgent(actor.ID) {
			return apperror.New(apperror.ErrCodeForbidden, "incident is assigned to another agent")
		}
		if input.touchesClassification() {
			return apperror.New(apperror.ErrCodeForbidden, "only administrators can reclassify or reassign an incident")
		}
		return nil
	default:
		return apperror.New(apperror.ErrCodeForbidden, "only agents and administrators can update an incident")
	}
}

// apply изменяет обращение в памяти; запись в хранилище делает вызывающий.
func (uc *ApplyUpdateUseCase) apply(ctx context.Context, incident *entity.Incident, actor *entity.User, input ApplyUpdateInput, parsed parsedUpdate) (updateOutcome, error) {
	now := uc.now()
	outcome := updateOutcome{oldStatus: incident.Status}

	if err := uc.ensureNeighborhood(ctx, parsed.details.NeighborhoodID); err != nil {
		return outcome, err
	}
	if err := uc.ensureDepartment(ctx, parsed.details.DepartmentID); err != nil {
		return outcome, err
	}

	var agent *entity.User
	if input.AgentID != nil {
		var err error
		agent, err = uc.loadUser(ctx, "agent", *input.AgentID)
		if err != nil {
			return outcome, err
		}
	}

	target, err := resolveTargetStatus(incident.Status, parsed.status)
	if err != nil {
		return outcome, err
	}
	if input.ResolutionComment != nil && target != valueobject.IncidentStatusResolved && incident.Status != valueobject.IncidentStatusResolved {
		return outcome, apperror.Validation("resolution comment can only be set when the incident is resolved")
	}

	if agent != nil {
		assigned, err := incident.AssignAgent(agent, now)
		if err != nil {
			return outcome, err
		}
		if assigned {
			outcome.assignedAgent = agent
			outcome.changed = true
			if outcome.oldStatus == valueobject.IncidentStatusReported && target == "" {
				target = valueobject.IncidentStatusAssigned
			}
		}
	}

	if incident.ApplyDetails(parsed.details, now) {
		outcome.changed = true
	}

	switch {
	case target != "":
		if err := incident.TransitionTo(target, trimmed(input.ResolutionComment), now); err != nil {
			return outcome, err
		}
		outcome.changed = true
	case input.ResolutionComment != nil && !sameText(incident.ResolutionComment, input.ResolutionComment):
		incident.ResolutionComment = trimmed(input.ResolutionComment)
		incident.UpdatedAt = now
		outcome.changed = true
	}

	logger.ForIncident(incident.ID, actor.ID).WithFields(logrus.Fields{
		"from":    outcome.oldStatus,
		"to":      incident.Status,
		"changed": outcome.changed,
	}).Debug("incident: update applied")
	return outcome, nil
}

// resolveTargetStatus возвращает статус, в который нужно перейти, или "" без перехода.
// Запрос текущего статуса считается отсутствием изменений, кроме терминального CLOSED.
func resolveTargetStatus(current valueobject.IncidentStatus, requested *valueobject.IncidentStatus) (valueobject.IncidentStatus, error) {
	if requested == nil {
		return "", nil
	}
	if *requested == current && !current.IsTerminal() {
		return "", nil
	}
	if !current.CanTransitionTo(*requested) {
		return "", apperror.InvalidTransition(string(current), string(*requested))
	}
	return *requested, nil
}

func (uc *ApplyUpdateUseCase) recordUpdate(ctx context.Context, incident *entity.Incident, actorID uuid.UUID, outcome updateOutcome) error {
	if outcome.assignedAgent != nil {
		if err := uc.record(ctx, incident.ID, &actorID, entity.HistoryActionAgentAssigned, nil, jsonValue(outcome.assignedAgent.ID)); err != nil {
			return err
		}
	}
	if incident.Status != outcome.oldStatus {
		return uc.record(ctx, incident.ID, &actorID, entity.HistoryActionStatusChanged, jsonValue(outcome.oldStatus), jsonValue(incident.Status))
	}
	if outcome.assignedAgent == nil {
		return uc.record(ctx, incident.ID, &actorID, entity.HistoryActionReclassified, nil, nil)
	}
	return nil
}

func (uc *ApplyUpdateUseCase) dispatch(ctx context.Context, incident *entity.Incident, actorID uuid.UUID, outcome updateOutcome) {
	if !outcome.changed {
		return
	}

	if outcome.assignedAgent != nil {
		uc.notifyAssignment(ctx, incident, outcome.assignedAgent)
		uc.publish(ctx, entity.IncidentEvent{
			Type:       entity.EventAgentAssigned,
			IncidentID: incident.ID,
			ActorID:    &actorID,
			AgentID:    incident.AgentID,
		})
	}

	if incident.Status != outcome.oldStatus {
		uc.notifyStatusChange(ctx, incident)
		uc.publish(ctx, entity.IncidentEvent{
			Type:       entity.EventStatusChanged,
			IncidentID: incident.ID,
			ActorID:    &actorID,
			FromStatus: string(outcome.oldStatus),
			ToStatus:   string(incident.Status),
			AgentID:    incident.AgentID,
		})
		return
	}

	uc.publish(ctx, entity.IncidentEvent{
		Type:       entity.EventIncidentUpdated,
		IncidentID: incident.ID,
		ActorID:    &actorID,
		ToStatus:   string(incident.Status),
	})
}

// parseUpdate проверяет все поля запроса до любых изменений.
func parseUpdate(input ApplyUpdateInput) (parsedUpdate, error) {
	var p parsedUpdate

	if input.Title != nil {
		if err := entity.ValidateTitle(*input.Title); err != nil {
			return p, err
		}
		p.details.Title = input.Title
	}
	if input.Description != nil {
		if err := entity.ValidateDescription(*input.Description); err != nil {
			return p, err
		}
		p.details.Description = input.Description
	}
	if input.Address != nil {
		if err := entity.ValidateAddress(*input.Address); err != nil {
			return p, err
		}
		p.details.Address = input.Address
	}
	if input.Category != nil {
		c, err := valueobject.NewCategory(*input.Category)
		if err != nil {
			return p, err
		}
		p.details.Category = &c
	}
	if input.Priority != nil {
		pr, err := valueobject.NewPriority(*input.Priority)
		if err != nil {
			return p, err
		}
		p.details.Priority = &pr
	}
	coords, err := valueobject.NewOptionalCoordinates(input.Latitude, input.Longitude)
	if err != nil {
		return p, err
	}
	p.details.Coordinates = coords
	p.details.NeighborhoodID = input.NeighborhoodID
	p.details.DepartmentID = input.DepartmentID

	if input.Status != nil {
		s, err := valueobject.NewIncidentStatus(*input.Status)
		if err != nil {
			return p, err
		}
		p.status = &s
	}
	if err := validation.ValidateOptional("resolution comment", input.ResolutionComment, validation.MaxResolutionCommentLength); err != nil {
		return p, apperror.Validation(err.Error())
	}
	return p, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func sameText(current, requested *string) bool {
	if current == nil || requested == nil {
		return current == nil && requested == nil
	}
	return *current == strings.TrimSpace(*requested)
}

func jsonValue(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
