package incident

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

type SubmitIncidentInput struct {
	CitizenID      uuid.UUID
	Title          string
	Description    string
	Category       string
	Priority       string
	Address        string
	Latitude       *float64
	Longitude      *float64
	NeighborhoodID *uuid.UUID
	Photos         []PhotoUpload
}

type SubmitIncidentUseCase struct {
	workflow
}

func NewSubmitIncidentUseCase(deps Dependencies) *SubmitIncidentUseCase {
	return &SubmitIncidentUseCase{workflow: newWorkflow(deps)}
}

// Execute регистрирует новое обращение гражданина в статусе REPORTED.
func (uc *SubmitIncidentUseCase) Execute(ctx context.Context, input SubmitIncidentInput) (*entity.Incident, error) {
	category, err := valueobject.NewCategory(input.Category)
	if err != nil {
		return nil, err
	}
	priority, err := valueobject.NewPriority(input.Priority)
	if err != nil {
		return nil, err
	}
	coords, err := valueobject.NewOptionalCoordinates(input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}

	incident, err := entity.NewIncident(entity.NewIncidentParams{
		CitizenID:      input.CitizenID,
		Title:          input.Title,
		Description:    input.Description,
		Category:       category,
		Priority:       priority,
		Address:        input.Address,
		Coordinates:    coords,
		NeighborhoodID: input.NeighborhoodID,
	}, uc.now())
	if err != nil {
		return nil, err
	}

	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		citizen, err := uc.loadUser(ctx, "user", input.CitizenID)
		if err != nil {
			return err
		}
		if err := uc.ensureNeighborhood(ctx, input.NeighborhoodID); err != nil {
			return err
		}
		if err := uc.deps.Incidents.Create(ctx, incident); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create incident")
		}
		incident.Citizen = citizen
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.attachPhotos(ctx, incident, input.Photos)

	incidentID := incident.ID
	uc.notify(ctx, NotificationRequest{
		RecipientID: incident.CitizenID,
		IncidentID:  &incidentID,
		Title:       "Report received",
		Message:     fmt.Sprintf("Your report \"%s\" has been recorded", incident.Title),
		Type:        valueobject.NotificationIncidentCreated,
	})
	uc.publish(ctx, entity.IncidentEvent{
		Type:       entity.EventIncidentSubmitted,
		IncidentID: incident.ID,
		ActorID:    &incident.CitizenID,
		ToStatus:   string(incident.Status),
	})

	logger.ForIncident(incident.ID, incident.CitizenID).Info("incident: submitted")
	return incident, nil
}
