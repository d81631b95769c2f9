package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/dto"
	"github.com/ignatzorin/citesignal-backend/internal/http/handlers/common"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

// MaxPhotosPerRequest сколько файлов принимается в одном запросе.
const MaxPhotosPerRequest = 10

const photosField = "photos"

// IncidentUseCases use case'ы обращений, которые вызывает хэндлер.
type IncidentUseCases struct {
	Submit interface {
		Execute(ctx context.Context, in incident.SubmitIncidentInput) (*entity.Incident, error)
	}
	Update interface {
		Execute(ctx context.Context, in incident.ApplyUpdateInput) (*entity.Incident, error)
	}
	Close interface {
		Execute(ctx context.Context, in incident.CloseIncidentInput) (*entity.Incident, error)
	}
	AddPhotos interface {
		Execute(ctx context.Context, in incident.AddPhotosInput) ([]entity.Photo, error)
	}
	Get interface {
		Execute(ctx context.Context, id uuid.UUID) (*entity.Incident, error)
	}
	ByCitizen interface {
		Execute(ctx context.Context, citizenID uuid.UUID, page repository.Page) (*incident.ListIncidentsOutput, error)
	}
	ByAgent interface {
		Execute(ctx context.Context, agentID uuid.UUID, page repository.Page) (*incident.ListIncidentsOutput, error)
	}
	Search interface {
		Execute(ctx context.Context, filter repository.IncidentFilter) (*incident.ListIncidentsOutput, error)
	}
	Map interface {
		Execute(ctx context.Context, filter repository.IncidentFilter) (*geojson.FeatureCollection, error)
	}
	History interface {
		Execute(ctx context.Context, incidentID uuid.UUID) ([]entity.IncidentHistory, error)
	}
}

// IncidentHandler HTTP слой обращений граждан.
type IncidentHandler struct {
	uc IncidentUseCases
}

func NewIncidentHandler(uc IncidentUseCases) *IncidentHandler {
	return &IncidentHandler{uc: uc}
}

// Submit обрабатывает POST /api/incidents (JSON или multipart с полем photos).
func (h *IncidentHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req dto.SubmitIncidentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	neighborhoodID, err := dto.ParseOptionalUUID("neighborhood_id", req.NeighborhoodID)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	photos, ok := formPhotos(c)
	if !ok {
		return
	}

	created, err := h.uc.Submit.Execute(c.Request.Context(), incident.SubmitIncidentInput{
		CitizenID:      userID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		NeighborhoodID: neighborhoodID,
		Photos:         photos,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, dto.NewIncidentResponse(created))
}

// Update обрабатывает PATCH /api/incidents/:id.
func (h *IncidentHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return
	}

	var req dto.UpdateIncidentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	in := incident.ApplyUpdateInput{
		IncidentID:        id,
		ActorID:           userID,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Priority:          req.Priority,
		Address:           req.Address,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Status:            req.Status,
		ResolutionComment: req.ResolutionComment,
	}
	for _, ref := range []struct {
		field string
		raw   *string
		dst   **uuid.UUID
	}{
		{"neighborhood_id", req.NeighborhoodID, &in.NeighborhoodID},
		{"department_id", req.DepartmentID, &in.DepartmentID},
		{"agent_id", req.AgentID, &in.AgentID},
	} {
		parsed, err := dto.ParseOptionalUUID(ref.field, ref.raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		*ref.dst = parsed
	}
	photos, ok := formPhotos(c)
	if !ok {
		return
	}
	in.Photos = photos

	updated, err := h.uc.Update.Execute(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, dto.NewIncidentResponse(updated))
}

// Close обрабатывает POST /api/incidents/:id/close.
func (h *IncidentHandler) Close(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return
	}

	var req dto.CloseIncidentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	closed, err := h.uc.Close.Execute(c.Request.Context(), incident.CloseIncidentInput{
		IncidentID: id,
		ActorID:    &userID,
		Feedback:   req.Feedback,
		Score:      req.SatisfactionScore,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, dto.NewIncidentResponse(closed))
}

// AddPhotos обрабатывает POST /api/incidents/:id/photos.
func (h *IncidentHandler) AddPhotos(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return
	}
	photos, ok := formPhotos(c)
	if !ok {
		return
	}
	if len(photos) == 0 {
		response.BadRequest(c, "at least one photo is required")
		return
	}

	saved, err := h.uc.AddPhotos.Execute(c.Request.Context(), incident.AddPhotosInput{
		IncidentID: id,
		ActorID:    userID,
		Photos:     photos,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, dto.NewPhotoResponses(saved))
}

// Get обрабатывает GET /api/incidents/:id.
func (h *IncidentHandler) Get(c *gin.Context) {
	found, ok := h.loadVisible(c)
	if !ok {
		return
	}
	response.Success(c, dto.NewIncidentResponse(found))
}

// History обрабатывает GET /api/incidents/:id/history.
func (h *IncidentHandler) History(c *gin.Context) {
	found, ok := h.loadVisible(c)
	if !ok {
		return
	}

	entries, err := h.uc.History.Execute(c.Request.Context(), found.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.NewHistoryResponses(entries))
}

// My обрабатывает GET /api/incidents/my.
func (h *IncidentHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	page := common.GetPagination(c)

	out, err := h.uc.ByCitizen.Execute(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewIncidentResponses(out.Incidents), out.Total, page.Limit, page.Offset)
}

// Assigned обрабатывает GET /api/incidents/assigned.
func (h *IncidentHandler) Assigned(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}
	page := common.GetPagination(c)

	out, err := h.uc.ByAgent.Execute(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewIncidentResponses(out.Incidents), out.Total, page.Limit, page.Offset)
}

// Search обрабатывает GET /api/incidents.
func (h *IncidentHandler) Search(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	out, err := h.uc.Search.Execute(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewIncidentResponses(out.Incidents), out.Total, filter.Limit, filter.Offset)
}

// Map обрабатывает GET /api/incidents/map и отдаёт GeoJSON без обёртки.
func (h *IncidentHandler) Map(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	filter.Limit = common.ParseIntQuery(c, "limit", incident.MaxMapFeatures)

	fc, err := h.uc.Map.Execute(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// loadVisible гражданин видит только свои обращения, сотрудники мэрии видят все.
func (h *IncidentHandler) loadVisible(c *gin.Context) (*entity.Incident, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return nil, false
	}
	role, _ := common.CurrentRole(c)
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return nil, false
	}

	found, err := h.uc.Get.Execute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !role.IsStaff() && found.CitizenID != userID {
		response.Forbidden(c, "incident belongs to another citizen")
		return nil, false
	}
	return found, true
}

// parseFilter разбирает query параметры поиска; ошибка уже отправлена клиенту при ok == false.
func parseFilter(c *gin.Context) (repository.IncidentFilter, bool) {
	page := common.GetPagination(c)
	filter := repository.IncidentFilter{
		Query:   c.Query("q"),
		SortBy:  c.Query("sort_by"),
		SortDir: strings.ToUpper(c.Query("sort_dir")),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewIncidentStatus(raw)
		if err != nil {
			respondError(c, err)
			return filter, false
		}
		filter.Status = &status
	}
	if raw := c.Query("category"); raw != "" {
		category, err := valueobject.NewCategory(raw)
		if err != nil {
			respondError(c, err)
			return filter, false
		}
		filter.Category = &category
	}
	for _, ref := range []struct {
		field string
		dst   **uuid.UUID
	}{
		{"neighborhood_id", &filter.NeighborhoodID},
		{"department_id", &filter.DepartmentID},
	} {
		raw := c.Query(ref.field)
		parsed, err := dto.ParseOptionalUUID(ref.field, &raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return filter, false
		}
		*ref.dst = parsed
	}
	if raw := c.Query("from"); raw != "" {
		from, _, err := dto.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "from: "+err.Error())
			return filter, false
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, dateOnly, err := dto.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "to: "+err.Error())
			return filter, false
		}
		if dateOnly {
			to = to.AddDate(0, 0, 1).Add(-1)
		}
		filter.To = &to
	}
	return filter, true
}

// formPhotos файлы из поля photos multipart формы; для JSON запроса пустой список.
func formPhotos(c *gin.Context) ([]incident.PhotoUpload, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, true
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "invalid multipart form: "+err.Error())
		return nil, false
	}
	files := form.File[photosField]
	if len(files) > MaxPhotosPerRequest {
		response.BadRequest(c, "too many photos in one request")
		return nil, false
	}

	uploads := make([]incident.PhotoUpload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, incident.PhotoUpload{
			FileName: fh.Filename,
			Open:     openerFor(fh),
		})
	}
	return uploads, true
}

func openerFor(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
