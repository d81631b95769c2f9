package incident

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

type AddPhotosInput struct {
	IncidentID uuid.UUID
	ActorID    uuid.UUID
	Photos     []PhotoUpload
}

// AddPhotosUseCase дозагрузка фотографий к существующему обращению.
type AddPhotosUseCase struct {
	workflow
}

func NewAddPhotosUseCase(deps Dependencies) *AddPhotosUseCase {
	return &AddPhotosUseCase{workflow: newWorkflow(deps)}
}

// Execute возвращает только успешно сохранённые фото.
func (uc *AddPhotosUseCase) Execute(ctx context.Context, input AddPhotosInput) ([]entity.Photo, error) {
	if len(input.Photos) == 0 {
		return nil, apperror.Validation("at least one photo is required")
	}
	incident, err := uc.loadIncident(ctx, input.IncidentID)
	if err != nil {
		return nil, err
	}
	actor, err := uc.loadUser(ctx, "user", input.ActorID)
	if err != nil {
		return nil, err
	}
	if !incident.IsOwnedBy(actor.ID) && !incident.IsAssignedTo(actor.ID) && !actor.Role.IsAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "you cannot add photos to this incident")
	}
	if incident.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeIllegalOperation, "photos cannot be added to a closed incident")
	}
	return uc.attachPhotos(ctx, incident, input.Photos), nil
}
