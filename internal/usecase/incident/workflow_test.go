package incident_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

func TestSubmitIncidentUseCase_Success(t *testing.T) {
	e := newEnv()
	uc := incident.NewSubmitIncidentUseCase(e.deps())

	result, err := uc.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID:   e.citizen.ID,
		Title:       "Pothole on Main St",
		Description: "Deep pothole near the bus stop",
		Category:    "INFRASTRUCTURE",
		Address:     "12 Main St",
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.IncidentStatusReported, result.Status)
	assert.Equal(t, valueobject.PriorityMedium, result.Priority)
	assert.Nil(t, result.ResolvedAt)

	sent := e.notifier.to(e.citizen.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, valueobject.NotificationIncidentCreated, sent[0].Type)
	assert.Equal(t, []string{entity.EventIncidentSubmitted}, e.events.types())
}

func TestSubmitIncidentUseCase_RoundTrip(t *testing.T) {
	e := newEnv()
	submit := incident.NewSubmitIncidentUseCase(e.deps())
	get := incident.NewGetIncidentUseCase(e.incidents)

	created, err := submit.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID:   e.citizen.ID,
		Title:       "Overflowing bins",
		Description: "Bins not collected since Monday",
		Category:    "CLEANLINESS",
		Priority:    "HIGH",
		Address:     "Avenue Habib Bourguiba",
	})
	require.NoError(t, err)

	fetched, err := get.Execute(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Overflowing bins", fetched.Title)
	assert.Equal(t, "Bins not collected since Monday", fetched.Description)
	assert.Equal(t, valueobject.CategoryCleanliness, fetched.Category)
	assert.Equal(t, valueobject.PriorityHigh, fetched.Priority)
	assert.Equal(t, "Avenue Habib Bourguiba", fetched.Address)
	assert.Equal(t, valueobject.IncidentStatusReported, fetched.Status)
	assert.Nil(t, fetched.ResolvedAt)
	assert.Nil(t, fetched.ResolutionComment)
}

func TestSubmitIncidentUseCase_Validation(t *testing.T) {
	e := newEnv()
	uc := incident.NewSubmitIncidentUseCase(e.deps())
	lat := 36.8

	tests := []struct {
		name  string
		input incident.SubmitIncidentInput
	}{
		{"empty title", incident.SubmitIncidentInput{CitizenID: e.citizen.ID, Title: "  ", Description: "d", Category: "OTHER", Address: "a"}},
		{"unknown category", incident.SubmitIncidentInput{CitizenID: e.citizen.ID, Title: "t", Description: "d", Category: "NOISE", Address: "a"}},
		{"unknown priority", incident.SubmitIncidentInput{CitizenID: e.citizen.ID, Title: "t", Description: "d", Category: "OTHER", Priority: "CRITICAL", Address: "a"}},
		{"latitude without longitude", incident.SubmitIncidentInput{CitizenID: e.citizen.ID, Title: "t", Description: "d", Category: "OTHER", Address: "a", Latitude: &lat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.input)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
	assert.Empty(t, e.incidents.incidents)
}

func TestSubmitIncidentUseCase_UnknownReferences(t *testing.T) {
	e := newEnv()
	uc := incident.NewSubmitIncidentUseCase(e.deps())
	neighborhood := uuid.New()

	_, err := uc.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID: uuid.New(), Title: "t", Description: "d", Category: "OTHER", Address: "a",
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = uc.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID: e.citizen.ID, Title: "t", Description: "d", Category: "OTHER", Address: "a",
		NeighborhoodID: &neighborhood,
	})
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, e.incidents.incidents)
}

func TestSubmitIncidentUseCase_PhotoFailureIsSkipped(t *testing.T) {
	e := newEnv()
	e.store.failOn = "broken.jpg"
	uc := incident.NewSubmitIncidentUseCase(e.deps())

	result, err := uc.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID: e.citizen.ID, Title: "Graffiti", Description: "On the school wall", Category: "CLEANLINESS", Address: "Rue de Rome",
		Photos: []incident.PhotoUpload{upload("wall.jpg", "jpeg-bytes"), upload("broken.jpg", "x")},
	})
	require.NoError(t, err)
	require.Len(t, result.Photos, 1)
	assert.Equal(t, "wall.jpg", result.Photos[0].FileName)
	assert.Equal(t, "/media/"+result.ID.String()+"/wall.jpg", result.Photos[0].URL)
}

func TestSubmitIncidentUseCase_OrphanFileRemoved(t *testing.T) {
	e := newEnv()
	e.photos.fail = true
	uc := incident.NewSubmitIncidentUseCase(e.deps())

	result, err := uc.Execute(context.Background(), incident.SubmitIncidentInput{
		CitizenID: e.citizen.ID, Title: "Graffiti", Description: "On the school wall", Category: "CLEANLINESS", Address: "Rue de Rome",
		Photos: []incident.PhotoUpload{upload("wall.jpg", "jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Photos)
	assert.Len(t, e.store.deleted, 1)
	assert.Empty(t, e.store.files)
}

func TestApplyUpdateUseCase_AdminAssignsAgent(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusReported, nil)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	agentID := e.agent.ID
	result, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID,
		ActorID:    e.admin.ID,
		AgentID:    &agentID,
	})
	require.NoError(t, err)

	assert.Equal(t, valueobject.IncidentStatusAssigned, result.Status)
	assert.Equal(t, e.agent.DepartmentID, result.DepartmentID)
	assert.Equal(t, valueobject.IncidentStatusAssigned, e.incidents.incidents[seeded.ID].Status)

	agentNotes := e.notifier.to(e.agent.ID)
	require.Len(t, agentNotes, 1)
	assert.Equal(t, valueobject.NotificationIncidentAssigned, agentNotes[0].Type)

	citizenNotes := e.notifier.to(e.citizen.ID)
	require.Len(t, citizenNotes, 1)
	assert.Contains(t, citizenNotes[0].Message, "taken in charge")

	require.Len(t, e.mailer.sent, 2)
	assert.Equal(t, sentEmail{kind: "assignment", to: e.agent.ID}, e.mailer.sent[0])
	assert.Equal(t, "status", e.mailer.sent[1].kind)
	assert.Equal(t, e.citizen.ID, e.mailer.sent[1].to)
	assert.Contains(t, e.mailer.sent[1].message, "taken in charge")

	assert.Equal(t, []string{entity.EventAgentAssigned, entity.EventStatusChanged}, e.events.types())
	assert.Len(t, e.history.entries, 2)
}

func TestApplyUpdateUseCase_AgentEditsForeignIncident(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.other)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID,
		ActorID:    e.agent.ID,
		Title:      strPtr("Renamed"),
	})
	assert.True(t, apperror.IsForbidden(err))

	stored := e.incidents.incidents[seeded.ID]
	assert.Equal(t, "Broken street light", stored.Title)
	assert.Equal(t, 0, e.incidents.updates)
	assert.Empty(t, e.notifier.sent)
}

func TestApplyUpdateUseCase_Permissions(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.citizen.ID, Status: strPtr("IN_PROGRESS"),
	})
	assert.True(t, apperror.IsForbidden(err), "citizen cannot update")

	_, err = uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, Priority: strPtr("URGENT"),
	})
	assert.True(t, apperror.IsForbidden(err), "agent cannot reclassify")

	result, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, Status: strPtr("IN_PROGRESS"),
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.IncidentStatusInProgress, result.Status)
}

func TestApplyUpdateUseCase_ResolveAndReopen(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusInProgress, e.agent)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	resolved, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID,
		Status: strPtr("RESOLVED"), ResolutionComment: strPtr(" Bulb replaced "),
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, e.now, *resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolutionComment)
	assert.Equal(t, "Bulb replaced", *resolved.ResolutionComment)

	notes := e.notifier.to(e.citizen.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, valueobject.NotificationIncidentResolved, notes[0].Type)

	reopened, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, Status: strPtr("IN_PROGRESS"),
	})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ResolutionComment)
}

func TestApplyUpdateUseCase_ResolutionCommentRequiresResolved(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, ResolutionComment: strPtr("done"),
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestApplyUpdateUseCase_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from valueobject.IncidentStatus
		to   string
	}{
		{valueobject.IncidentStatusReported, "IN_PROGRESS"},
		{valueobject.IncidentStatusReported, "RESOLVED"},
		{valueobject.IncidentStatusAssigned, "RESOLVED"},
		{valueobject.IncidentStatusInProgress, "CLOSED"},
		{valueobject.IncidentStatusResolved, "ASSIGNED"},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			e := newEnv()
			seeded := e.seed(tt.from, e.agent)
			uc := incident.NewApplyUpdateUseCase(e.deps())

			_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
				IncidentID: seeded.ID, ActorID: e.admin.ID, Status: strPtr(tt.to),
			})
			assert.True(t, apperror.IsInvalidTransition(err), "got %v", err)
			assert.Equal(t, tt.from, e.incidents.incidents[seeded.ID].Status)
		})
	}
}

func TestApplyUpdateUseCase_ClosedIsTerminal(t *testing.T) {
	for _, target := range valueobject.AllIncidentStatuses() {
		t.Run(string(target), func(t *testing.T) {
			e := newEnv()
			seeded := e.seed(valueobject.IncidentStatusClosed, e.agent)
			uc := incident.NewApplyUpdateUseCase(e.deps())

			_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
				IncidentID: seeded.ID, ActorID: e.admin.ID, Status: strPtr(string(target)),
			})
			assert.True(t, apperror.IsInvalidTransition(err), "got %v", err)
			assert.Equal(t, valueobject.IncidentStatusClosed, e.incidents.incidents[seeded.ID].Status)
		})
	}
}

func TestApplyUpdateUseCase_NoChangesIsIdempotent(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	agentID := e.agent.ID
	result, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID,
		ActorID:    e.admin.ID,
		Title:      strPtr(seeded.Title),
		Category:   strPtr(string(seeded.Category)),
		Status:     strPtr(string(seeded.Status)),
		AgentID:    &agentID,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.IncidentStatusAssigned, result.Status)
	assert.Equal(t, 0, e.incidents.updates)
	assert.Empty(t, e.notifier.sent)
	assert.Empty(t, e.mailer.sent)
	assert.Empty(t, e.events.events)
	assert.Empty(t, e.history.entries)
}

func TestApplyUpdateUseCase_AssignNonAgent(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusReported, nil)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	citizenID := e.citizen.ID
	_, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.admin.ID, AgentID: &citizenID,
	})
	assert.True(t, apperror.IsValidation(err))

	missing := uuid.New()
	_, err = uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.admin.ID, AgentID: &missing,
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.admin.ID, DepartmentID: &missing,
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestApplyUpdateUseCase_Reclassify(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	uc := incident.NewApplyUpdateUseCase(e.deps())

	result, err := uc.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID,
		ActorID:    e.admin.ID,
		Category:   strPtr("SECURITY"),
		Priority:   strPtr("URGENT"),
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.CategorySecurity, result.Category)
	assert.Equal(t, valueobject.PriorityUrgent, result.Priority)
	assert.Empty(t, e.notifier.sent)
	assert.Equal(t, []string{entity.EventIncidentUpdated}, e.events.types())
	require.Len(t, e.history.entries, 1)
	assert.Equal(t, entity.HistoryActionReclassified, e.history.entries[0].Action)
}

func TestCloseIncidentUseCase_Success(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusResolved, e.agent)
	uc := incident.NewCloseIncidentUseCase(e.deps())

	actor := e.citizen.ID
	result, err := uc.Execute(context.Background(), incident.CloseIncidentInput{
		IncidentID: seeded.ID,
		ActorID:    &actor,
		Feedback:   strPtr("Great job"),
		Score:      intPtr(5),
	})
	require.NoError(t, err)

	stored := e.incidents.incidents[seeded.ID]
	assert.Equal(t, valueobject.IncidentStatusClosed, stored.Status)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, "Great job", *stored.Feedback)
	assert.Equal(t, 5, *stored.SatisfactionScore)
	require.NotNil(t, result.ResolvedAt)
	assert.False(t, result.ResolvedAt.After(e.now))

	agentNotes := e.notifier.to(e.agent.ID)
	require.Len(t, agentNotes, 1)
	assert.Equal(t, valueobject.NotificationIncidentClosed, agentNotes[0].Type)
	assert.Empty(t, e.notifier.to(e.citizen.ID))
	assert.Empty(t, e.mailer.sent)
}

func TestCloseIncidentUseCase_Errors(t *testing.T) {
	e := newEnv()
	resolved := e.seed(valueobject.IncidentStatusResolved, e.agent)
	inProgress := e.seed(valueobject.IncidentStatusInProgress, e.agent)
	uc := incident.NewCloseIncidentUseCase(e.deps())

	_, err := uc.Execute(context.Background(), incident.CloseIncidentInput{IncidentID: inProgress.ID})
	assert.True(t, apperror.IsIllegalOperation(err))

	_, err = uc.Execute(context.Background(), incident.CloseIncidentInput{IncidentID: resolved.ID, Score: intPtr(6)})
	assert.True(t, apperror.IsValidation(err))

	_, err = uc.Execute(context.Background(), incident.CloseIncidentInput{IncidentID: uuid.New()})
	assert.True(t, apperror.IsNotFound(err))

	stranger := e.other.ID
	_, err = uc.Execute(context.Background(), incident.CloseIncidentInput{IncidentID: resolved.ID, ActorID: &stranger})
	assert.True(t, apperror.IsForbidden(err))

	assert.Equal(t, valueobject.IncidentStatusResolved, e.incidents.incidents[resolved.ID].Status)
}

func TestListHistoryUseCase(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	update := incident.NewApplyUpdateUseCase(e.deps())
	list := incident.NewListHistoryUseCase(e.incidents, e.history)

	_, err := update.Execute(context.Background(), incident.ApplyUpdateInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, Status: strPtr("IN_PROGRESS"),
	})
	require.NoError(t, err)

	entries, err := list.Execute(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.HistoryActionStatusChanged, entries[0].Action)
	assert.JSONEq(t, `"ASSIGNED"`, string(entries[0].OldValue))
	assert.JSONEq(t, `"IN_PROGRESS"`, string(entries[0].NewValue))

	_, err = list.Execute(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestMapExportUseCase(t *testing.T) {
	e := newEnv()
	withCoords := e.seed(valueobject.IncidentStatusReported, nil)
	withCoords.Coordinates = &valueobject.Coordinates{Latitude: 36.8065, Longitude: 10.1815}
	e.seed(valueobject.IncidentStatusReported, nil)

	fc, err := incident.NewMapExportUseCase(e.incidents).Execute(context.Background(), repository.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, withCoords.ID.String(), fc.Features[0].ID)
	assert.Equal(t, []float64{10.1815, 36.8065}, fc.Features[0].Geometry.Point)
	assert.Equal(t, "REPORTED", fc.Features[0].Properties["status"])
}

func TestAddPhotosUseCase(t *testing.T) {
	e := newEnv()
	seeded := e.seed(valueobject.IncidentStatusAssigned, e.agent)
	closed := e.seed(valueobject.IncidentStatusClosed, e.agent)
	uc := incident.NewAddPhotosUseCase(e.deps())

	photos, err := uc.Execute(context.Background(), incident.AddPhotosInput{
		IncidentID: seeded.ID, ActorID: e.agent.ID, Photos: []incident.PhotoUpload{upload("after.jpg", "img")},
	})
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	_, err = uc.Execute(context.Background(), incident.AddPhotosInput{
		IncidentID: seeded.ID, ActorID: e.other.ID, Photos: []incident.PhotoUpload{upload("x.jpg", "img")},
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = uc.Execute(context.Background(), incident.AddPhotosInput{
		IncidentID: closed.ID, ActorID: e.citizen.ID, Photos: []incident.PhotoUpload{upload("x.jpg", "img")},
	})
	assert.True(t, apperror.IsIllegalOperation(err))
}
