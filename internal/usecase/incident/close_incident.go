package incident

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/validation"
)

// CloseIncidentInput ActorID пустой для внутренних вызовов без проверки владельца.
type CloseIncidentInput struct {
	IncidentID uuid.UUID
	ActorID    *uuid.UUID
	Feedback   *string
	Score      *int
}

type CloseIncidentUseCase struct {
	workflow
}

func NewCloseIncidentUseCase(deps Dependencies) *CloseIncidentUseCase {
	return &CloseIncidentUseCase{workflow: newWorkflow(deps)}
}

// Execute закрывает решённое обращение с отзывом гражданина.
func (uc *CloseIncidentUseCase) Execute(ctx context.Context, input CloseIncidentInput) (*entity.Incident, error) {
	if err := entity.ValidateSatisfactionScore(input.Score); err != nil {
		return nil, err
	}
	if err := validation.ValidateOptional("feedback", input.Feedback, validation.MaxFeedbackLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var incident *entity.Incident
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		incident, err = uc.loadIncident(ctx, input.IncidentID)
		if err != nil {
			return err
		}
		if input.ActorID != nil {
			actor, err := uc.loadUser(ctx, "user", *input.ActorID)
			if err != nil {
				return err
			}
			if !incident.IsOwnedBy(actor.ID) && !actor.Role.IsAdmin() {
				return apperror.New(apperror.ErrCodeForbidden, "only the reporting citizen can close this incident")
			}
		}

		oldStatus := incident.Status
		if err := incident.Close(trimmed(input.Feedback), input.Score, uc.now()); err != nil {
			return err
		}
		if err := uc.deps.Incidents.Update(ctx, incident); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to close incident")
		}
		return uc.record(ctx, incident.ID, input.ActorID, entity.HistoryActionClosed, jsonValue(oldStatus), jsonValue(incident.Status))
	})
	if err != nil {
		return nil, err
	}

	if incident.AgentID != nil {
		incidentID := incident.ID
		uc.notify(ctx, NotificationRequest{
			RecipientID: *incident.AgentID,
			IncidentID:  &incidentID,
			Title:       "Incident closed",
			Message:     fmt.Sprintf("The citizen closed the report \"%s\"", incident.Title),
			Type:        valueobject.NotificationIncidentClosed,
		})
	}
	uc.publish(ctx, entity.IncidentEvent{
		Type:       entity.EventIncidentClosed,
		IncidentID: incident.ID,
		ActorID:    input.ActorID,
		FromStatus: string(valueobject.IncidentStatusResolved),
		ToStatus:   string(incident.Status),
		AgentID:    incident.AgentID,
	})

	logger.ForIncident(incident.ID, input.ActorID).Info("incident: closed")
	return incident, nil
}
