package incident

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

// NotificationRequest уведомление пользователю по обращению.
type NotificationRequest struct {
	RecipientID uuid.UUID
	IncidentID  *uuid.UUID
	Title       string
	Message     string
	Type        valueobject.NotificationType
}

// Notifier создаёт уведомления. Ошибки логируются реализацией и наружу не выходят.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest)
}

// Mailer отправляет письма по обращениям, тот же контракт fire-and-forget.
type Mailer interface {
	SendStatusEmail(ctx context.Context, citizen *entity.User, incident *entity.Incident, message string)
	SendAssignmentEmail(ctx context.Context, agent *entity.User, incident *entity.Incident)
}

// PhotoStore файловое хранилище фотографий обращений.
type PhotoStore interface {
	Save(ctx context.Context, incidentID uuid.UUID, fileName string, r io.Reader) (path string, size int64, mimeType string, err error)
	Delete(ctx context.Context, path string) error
	URLFor(path string) string
}

// EventPublisher публикует доменные события после фиксации транзакции.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.IncidentEvent)
}

// PhotoUpload загружаемый файл; Open вызывается по одному файлу за раз.
type PhotoUpload struct {
	FileName string
	Open     func() (io.ReadCloser, error)
}

// Dependencies общие зависимости use case'ов обращений.
type Dependencies struct {
	Incidents  repository.IncidentRepository
	Users      repository.UserRepository
	References repository.ReferenceRepository
	Photos     repository.PhotoRepository
	History    repository.IncidentHistoryRepository
	Tx         repository.Transactor
	Notifier   Notifier
	Mailer     Mailer
	Store      PhotoStore
	Events     EventPublisher
	Now        func() time.Time
}

// workflow внутренняя основа use case'ов с побочными эффектами.
type workflow struct {
	deps Dependencies
}

func newWorkflow(deps Dependencies) workflow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tx == nil {
		deps.Tx = noTx{}
	}
	return workflow{deps: deps}
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (w workflow) now() time.Time {
	return w.deps.Now().UTC()
}

func (w workflow) loadIncident(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	incident, err := w.deps.Incidents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident == nil {
		return nil, apperror.NotFound("incident", id)
	}
	return incident, nil
}

func (w workflow) loadUser(ctx context.Context, kind string, id uuid.UUID) (*entity.User, error) {
	user, err := w.deps.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound(kind, id)
	}
	return user, nil
}

func (w workflow) ensureNeighborhood(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	n, err := w.deps.References.FindNeighborhoodByID(ctx, *id)
	if err != nil {
		return err
	}
	if n == nil {
		return apperror.NotFound("neighborhood", *id)
	}
	return nil
}

func (w workflow) ensureDepartment(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	d, err := w.deps.References.FindDepartmentByID(ctx, *id)
	if err != nil {
		return err
	}
	if d == nil {
		return apperror.NotFound("department", *id)
	}
	return nil
}

// record пишет запись в историю внутри текущей транзакции.
func (w workflow) record(ctx context.Context, incidentID uuid.UUID, actorID *uuid.UUID, action string, oldValue, newValue []byte) error {
	if w.deps.History == nil {
		return nil
	}
	entry := &entity.IncidentHistory{
		ID:         uuid.New(),
		IncidentID: incidentID,
		UserID:     actorID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  w.now(),
	}
	if err := w.deps.History.Add(ctx, entry); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to record incident history")
	}
	return nil
}

func (w workflow) notify(ctx context.Context, req NotificationRequest) {
	if w.deps.Notifier == nil {
		return
	}
	w.deps.Notifier.Notify(ctx, req)
}

func (w workflow) publish(ctx context.Context, event entity.IncidentEvent) {
	if w.deps.Events == nil {
		return
	}
	event.OccurredAt = w.now()
	w.deps.Events.Publish(ctx, event)
}

// notifyStatusChange уведомление и письмо гражданину о смене статуса.
func (w workflow) notifyStatusChange(ctx context.Context, incident *entity.Incident) {
	message := incident.Status.StatusChangeMessage()
	incidentID := incident.ID
	w.notify(ctx, NotificationRequest{
		RecipientID: incident.CitizenID,
		IncidentID:  &incidentID,
		Title:       fmt.Sprintf("Report \"%s\" updated", incident.Title),
		Message:     message,
		Type:        valueobject.NotificationTypeForStatus(incident.Status),
	})

	if w.deps.Mailer == nil {
		return
	}
	citizen, err := w.loadUser(ctx, "user", incident.CitizenID)
	if err != nil {
		logger.ForIncident(incident.ID, incident.CitizenID).WithError(err).Warn("incident: citizen not loaded, status email skipped")
		return
	}
	w.deps.Mailer.SendStatusEmail(ctx, citizen, incident, message)
}

// notifyAssignment уведомление и письмо назначенному агенту.
func (w workflow) notifyAssignment(ctx context.Context, incident *entity.Incident, agent *entity.User) {
	incidentID := incident.ID
	w.notify(ctx, NotificationRequest{
		RecipientID: agent.ID,
		IncidentID:  &incidentID,
		Title:       "New incident assigned",
		Message:     fmt.Sprintf("The report \"%s\" at %s has been assigned to you", incident.Title, incident.Address),
		Type:        valueobject.NotificationIncidentAssigned,
	})
	if w.deps.Mailer != nil {
		w.deps.Mailer.SendAssignmentEmail(ctx, agent, incident)
	}
}

// attachPhotos сохраняет фото по одному; сбой отдельного файла пропускается.
func (w workflow) attachPhotos(ctx context.Context, incident *entity.Incident, uploads []PhotoUpload) []entity.Photo {
	if len(uploads) == 0 || w.deps.Store == nil || w.deps.Photos == nil {
		return nil
	}

	var stored []entity.Photo
	for _, upload := range uploads {
		photo, err := w.attachPhoto(ctx, incident.ID, upload)
		if err != nil {
			logger.L().WithFields(logrus.Fields{
				"incident_id": incident.ID,
				"file":        upload.FileName,
			}).WithError(err).Warn("incident: photo skipped")
			continue
		}
		stored = append(stored, *photo)
	}
	incident.Photos = append(incident.Photos, stored...)
	return stored
}

func (w workflow) attachPhoto(ctx context.Context, incidentID uuid.UUID, upload PhotoUpload) (*entity.Photo, error) {
	if upload.Open == nil {
		return nil, fmt.Errorf("no content for %s", upload.FileName)
	}
	rc, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	path, size, mimeType, err := w.deps.Store.Save(ctx, incidentID, upload.FileName, rc)
	if err != nil {
		return nil, err
	}

	photo := &entity.Photo{
		ID:          uuid.New(),
		IncidentID:  incidentID,
		FileName:    upload.FileName,
		StoragePath: path,
		URL:         w.deps.Store.URLFor(path),
		MimeType:    mimeType,
		Size:        size,
		CreatedAt:   w.now(),
	}
	if err := w.deps.Photos.Create(ctx, photo); err != nil {
		if delErr := w.deps.Store.Delete(ctx, path); delErr != nil {
			logger.L().WithError(delErr).WithField("path", path).Warn("incident: orphan photo file left")
		}
		return nil, fmt.Errorf("save photo record: %w", err)
	}
	return photo, nil
}
