package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

func sampleIncident(citizenID uuid.UUID) *entity.Incident {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &entity.Incident{
		ID:          uuid.New(),
		Title:       "Lampadaire en panne",
		Description: "Le lampadaire devant l'école ne fonctionne plus",
		Category:    valueobject.CategoryLighting,
		Status:      valueobject.IncidentStatusReported,
		Priority:    valueobject.PriorityMedium,
		Address:     "Avenue Habib Bourguiba",
		Coordinates: &valueobject.Coordinates{Latitude: 36.8, Longitude: 10.18},
		CitizenID:   citizenID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestIncidentHandler_Submit_Unauthorized(t *testing.T) {
	h := NewIncidentHandler(IncidentUseCases{})
	r := newRouter(uuid.Nil, "")
	r.POST("/incidents", h.Submit)

	w := doJSON(r, "POST", "/incidents", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIncidentHandler_Submit_JSON(t *testing.T) {
	citizenID := uuid.New()
	submit := &execStub[incident.SubmitIncidentInput, *entity.Incident]{
		fn: func(_ context.Context, in incident.SubmitIncidentInput) (*entity.Incident, error) {
			return sampleIncident(in.CitizenID), nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Submit: submit})
	r := newRouter(citizenID, valueobject.RoleCitizen)
	r.POST("/incidents", h.Submit)

	neighborhood := uuid.New()
	w := doJSON(r, "POST", "/incidents", map[string]any{
		"title":           "Lampadaire en panne",
		"description":     "Le lampadaire devant l'école ne fonctionne plus",
		"category":        "LIGHTING",
		"address":         "Avenue Habib Bourguiba",
		"latitude":        36.8,
		"longitude":       10.18,
		"neighborhood_id": neighborhood.String(),
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, submit.calls, 1)
	in := submit.calls[0]
	assert.Equal(t, citizenID, in.CitizenID)
	assert.Equal(t, "LIGHTING", in.Category)
	require.NotNil(t, in.NeighborhoodID)
	assert.Equal(t, neighborhood, *in.NeighborhoodID)
	assert.Empty(t, in.Photos)

	var body struct {
		Status   string   `json:"status"`
		Latitude *float64 `json:"latitude"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, "REPORTED", body.Status)
	require.NotNil(t, body.Latitude)
	assert.InDelta(t, 36.8, *body.Latitude, 1e-9)
}

func TestIncidentHandler_Submit_MultipartPhotos(t *testing.T) {
	citizenID := uuid.New()
	var contents []string
	submit := &execStub[incident.SubmitIncidentInput, *entity.Incident]{
		fn: func(_ context.Context, in incident.SubmitIncidentInput) (*entity.Incident, error) {
			for _, p := range in.Photos {
				rc, err := p.Open()
				require.NoError(t, err)
				raw, _ := io.ReadAll(rc)
				rc.Close()
				contents = append(contents, p.FileName+":"+string(raw))
			}
			return sampleIncident(in.CitizenID), nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Submit: submit})
	r := newRouter(citizenID, valueobject.RoleCitizen)
	r.POST("/incidents", h.Submit)

	w := doMultipart(r, "POST", "/incidents", map[string]string{
		"title":       "Nid de poule",
		"description": "Un trou profond au milieu de la chaussée",
		"category":    "INFRASTRUCTURE",
		"address":     "Rue de Marseille",
		"latitude":    "36.79",
		"longitude":   "10.17",
	}, []formFile{
		{field: "photos", name: "a.jpg", content: []byte("first")},
		{field: "photos", name: "b.jpg", content: []byte("second")},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"a.jpg:first", "b.jpg:second"}, contents)
	require.NotNil(t, submit.calls[0].Latitude)
	assert.InDelta(t, 36.79, *submit.calls[0].Latitude, 1e-9)
}

func TestIncidentHandler_Submit_MissingFields(t *testing.T) {
	h := NewIncidentHandler(IncidentUseCases{})
	r := newRouter(uuid.New(), valueobject.RoleCitizen)
	r.POST("/incidents", h.Submit)

	w := doJSON(r, "POST", "/incidents", map[string]any{"title": "only title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncidentHandler_Update(t *testing.T) {
	agentID := uuid.New()
	update := &execStub[incident.ApplyUpdateInput, *entity.Incident]{
		fn: func(_ context.Context, in incident.ApplyUpdateInput) (*entity.Incident, error) {
			inc := sampleIncident(uuid.New())
			inc.ID = in.IncidentID
			inc.Status = valueobject.IncidentStatusInProgress
			return inc, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Update: update})
	r := newRouter(agentID, valueobject.RoleMunicipalAgent)
	r.PATCH("/incidents/:id", h.Update)

	id := uuid.New()

	t.Run("status change", func(t *testing.T) {
		w := doJSON(r, "PATCH", "/incidents/"+id.String(), map[string]any{"status": "IN_PROGRESS"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		in := update.calls[len(update.calls)-1]
		assert.Equal(t, id, in.IncidentID)
		assert.Equal(t, agentID, in.ActorID)
		require.NotNil(t, in.Status)
		assert.Equal(t, "IN_PROGRESS", *in.Status)
		assert.Nil(t, in.Title)
		assert.Nil(t, in.AgentID)
	})

	t.Run("invalid agent id", func(t *testing.T) {
		before := len(update.calls)
		w := doJSON(r, "PATCH", "/incidents/"+id.String(), map[string]any{"agent_id": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, update.calls, before)
	})

	t.Run("invalid incident id", func(t *testing.T) {
		w := doJSON(r, "PATCH", "/incidents/123", map[string]any{"status": "RESOLVED"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIncidentHandler_Update_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"forbidden", apperror.New(apperror.ErrCodeForbidden, "citizens cannot update incidents"), http.StatusForbidden, "FORBIDDEN"},
		{"invalid transition", apperror.InvalidTransition("REPORTED", "CLOSED"), http.StatusConflict, "INVALID_TRANSITION"},
		{"not found", apperror.NotFound("incident", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", apperror.Validation("assignee must be a municipal agent"), http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			update := &execStub[incident.ApplyUpdateInput, *entity.Incident]{
				fn: func(context.Context, incident.ApplyUpdateInput) (*entity.Incident, error) { return nil, tc.err },
			}
			h := NewIncidentHandler(IncidentUseCases{Update: update})
			r := newRouter(uuid.New(), valueobject.RoleAdministrator)
			r.PATCH("/incidents/:id", h.Update)

			w := doJSON(r, "PATCH", "/incidents/"+uuid.NewString(), map[string]any{"status": "CLOSED"})
			assert.Equal(t, tc.want, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestIncidentHandler_Close(t *testing.T) {
	citizenID := uuid.New()
	closeUC := &execStub[incident.CloseIncidentInput, *entity.Incident]{
		fn: func(_ context.Context, in incident.CloseIncidentInput) (*entity.Incident, error) {
			inc := sampleIncident(citizenID)
			inc.ID = in.IncidentID
			inc.Status = valueobject.IncidentStatusClosed
			inc.SatisfactionScore = in.Score
			return inc, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Close: closeUC})
	r := newRouter(citizenID, valueobject.RoleCitizen)
	r.POST("/incidents/:id/close", h.Close)

	w := doJSON(r, "POST", "/incidents/"+uuid.NewString()+"/close", map[string]any{
		"feedback":           "Merci",
		"satisfaction_score": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	in := closeUC.calls[0]
	require.NotNil(t, in.ActorID)
	assert.Equal(t, citizenID, *in.ActorID)
	require.NotNil(t, in.Score)
	assert.Equal(t, 5, *in.Score)

	w = doJSON(r, "POST", "/incidents/"+uuid.NewString()+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, closeUC.calls[1].Score)
	assert.Nil(t, closeUC.calls[1].Feedback)
}

func TestIncidentHandler_AddPhotos(t *testing.T) {
	add := &execStub[incident.AddPhotosInput, []entity.Photo]{
		fn: func(_ context.Context, in incident.AddPhotosInput) ([]entity.Photo, error) {
			out := make([]entity.Photo, 0, len(in.Photos))
			for _, p := range in.Photos {
				out = append(out, entity.Photo{ID: uuid.New(), IncidentID: in.IncidentID, FileName: p.FileName})
			}
			return out, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{AddPhotos: add})
	r := newRouter(uuid.New(), valueobject.RoleCitizen)
	r.POST("/incidents/:id/photos", h.AddPhotos)

	path := "/incidents/" + uuid.NewString() + "/photos"

	w := doMultipart(r, "POST", path, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doMultipart(r, "POST", path, nil, []formFile{{field: "photos", name: "p.png", content: []byte("x")}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var photos []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &photos))
	require.Len(t, photos, 1)
	assert.Equal(t, "p.png", photos[0]["file_name"])
}

func TestIncidentHandler_Get_Visibility(t *testing.T) {
	owner := uuid.New()
	inc := sampleIncident(owner)
	get := &execStub[uuid.UUID, *entity.Incident]{
		fn: func(context.Context, uuid.UUID) (*entity.Incident, error) { return inc, nil },
	}

	cases := []struct {
		name   string
		userID uuid.UUID
		role   valueobject.Role
		want   int
	}{
		{"owner", owner, valueobject.RoleCitizen, http.StatusOK},
		{"other citizen", uuid.New(), valueobject.RoleCitizen, http.StatusForbidden},
		{"agent", uuid.New(), valueobject.RoleMunicipalAgent, http.StatusOK},
		{"admin", uuid.New(), valueobject.RoleAdministrator, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewIncidentHandler(IncidentUseCases{Get: get})
			r := newRouter(tc.userID, tc.role)
			r.GET("/incidents/:id", h.Get)

			w := doJSON(r, "GET", "/incidents/"+inc.ID.String(), nil)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestIncidentHandler_History(t *testing.T) {
	owner := uuid.New()
	inc := sampleIncident(owner)
	get := &execStub[uuid.UUID, *entity.Incident]{
		fn: func(context.Context, uuid.UUID) (*entity.Incident, error) { return inc, nil },
	}
	history := &execStub[uuid.UUID, []entity.IncidentHistory]{
		fn: func(_ context.Context, id uuid.UUID) ([]entity.IncidentHistory, error) {
			return []entity.IncidentHistory{{
				ID:         uuid.New(),
				IncidentID: id,
				Action:     entity.HistoryActionStatusChanged,
				OldValue:   json.RawMessage(`"REPORTED"`),
				NewValue:   json.RawMessage(`"ASSIGNED"`),
			}}, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Get: get, History: history})
	r := newRouter(owner, valueobject.RoleCitizen)
	r.GET("/incidents/:id/history", h.History)

	w := doJSON(r, "GET", "/incidents/"+inc.ID.String()+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "status_changed", entries[0]["action"])
	assert.Equal(t, "ASSIGNED", entries[0]["new_value"])
}

func TestIncidentHandler_My(t *testing.T) {
	citizenID := uuid.New()
	var gotPage repository.Page
	h := NewIncidentHandler(IncidentUseCases{
		ByCitizen: pageStub{fn: func(_ context.Context, id uuid.UUID, page repository.Page) (*incident.ListIncidentsOutput, error) {
			assert.Equal(t, citizenID, id)
			gotPage = page
			return &incident.ListIncidentsOutput{Incidents: []*entity.Incident{sampleIncident(id)}, Total: 7}, nil
		}},
	})
	r := newRouter(citizenID, valueobject.RoleCitizen)
	r.GET("/incidents/my", h.My)

	w := doJSON(r, "GET", "/incidents/my?limit=500&offset=-3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.Page{Limit: 100, Offset: 0}, gotPage)

	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 7, env.Pagination.Total)
}

func TestIncidentHandler_Search_Filters(t *testing.T) {
	search := &execStub[repository.IncidentFilter, *incident.ListIncidentsOutput]{
		fn: func(context.Context, repository.IncidentFilter) (*incident.ListIncidentsOutput, error) {
			return &incident.ListIncidentsOutput{}, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Search: search})
	r := newRouter(uuid.New(), valueobject.RoleAdministrator)
	r.GET("/incidents", h.Search)

	dept := uuid.New()
	w := doJSON(r, "GET", "/incidents?status=RESOLVED&category=WATER_SANITATION&department_id="+dept.String()+
		"&from=2026-01-01&to=2026-01-31&q=fuite&sort_by=priority&sort_dir=asc&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f := search.calls[0]
	require.NotNil(t, f.Status)
	assert.Equal(t, valueobject.IncidentStatusResolved, *f.Status)
	require.NotNil(t, f.Category)
	assert.Equal(t, valueobject.CategoryWaterSanitation, *f.Category)
	require.NotNil(t, f.DepartmentID)
	assert.Equal(t, dept, *f.DepartmentID)
	assert.Nil(t, f.NeighborhoodID)
	assert.Equal(t, "fuite", f.Query)
	assert.Equal(t, "ASC", f.SortDir)
	assert.Equal(t, 5, f.Limit)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 999999999, time.UTC), *f.To)

	w = doJSON(r, "GET", "/incidents?status=DONE", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, "GET", "/incidents?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncidentHandler_Map(t *testing.T) {
	mapUC := &execStub[repository.IncidentFilter, *geojson.FeatureCollection]{
		fn: func(context.Context, repository.IncidentFilter) (*geojson.FeatureCollection, error) {
			fc := geojson.NewFeatureCollection()
			f := geojson.NewPointFeature([]float64{10.18, 36.8})
			f.SetProperty("status", "REPORTED")
			fc.AddFeature(f)
			return fc, nil
		},
	}
	h := NewIncidentHandler(IncidentUseCases{Map: mapUC})
	r := newRouter(uuid.New(), valueobject.RoleCitizen)
	r.GET("/incidents/map", h.Map)

	w := doJSON(r, "GET", "/incidents/map?category=LIGHTING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/geo+json")
	assert.Equal(t, incident.MaxMapFeatures, mapUC.calls[0].Limit)

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{10.18, 36.8}, fc.Features[0].Geometry.Point)
}
