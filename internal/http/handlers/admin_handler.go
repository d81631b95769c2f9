package handlers

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/dto"
	"github.com/ignatzorin/citesignal-backend/internal/http/handlers/common"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/service"
)

// MaxImportSize предельный размер CSV файла с агентами.
const MaxImportSize = 2 << 20

// AgentAdmin управление учётными записями агентов.
type AgentAdmin interface {
	CreateAgent(ctx context.Context, in service.CreateAgentInput) (*service.CreatedAgent, error)
	ListAgents(ctx context.Context, page repository.Page) ([]*entity.User, int, error)
	ImportAgentsCSV(ctx context.Context, r io.Reader) (*service.ImportResult, error)
}

// AdminHandler маршруты /api/admin.
type AdminHandler struct {
	agents AgentAdmin
}

func NewAdminHandler(agents AgentAdmin) *AdminHandler {
	return &AdminHandler{agents: agents}
}

// CreateAgent обрабатывает POST /api/admin/agents.
func (h *AdminHandler) CreateAgent(c *gin.Context) {
	var req dto.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	departmentID, err := dto.ParseOptionalUUID("department_id", req.DepartmentID)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := h.agents.CreateAgent(c.Request.Context(), service.CreateAgentInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		DepartmentID: departmentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, dto.NewCreatedAgentResponse(*created))
}

// ListAgents обрабатывает GET /api/admin/agents.
func (h *AdminHandler) ListAgents(c *gin.Context) {
	page := common.GetPagination(c)

	agents, total, err := h.agents.ListAgents(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewUserResponses(agents), total, page.Limit, page.Offset)
}

// ImportAgents обрабатывает POST /api/admin/agents/import (multipart, поле file).
func (h *AdminHandler) ImportAgents(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "CSV file is required in field \"file\"")
		return
	}
	if fh.Size > MaxImportSize {
		response.BadRequest(c, "CSV file is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	result, err := h.agents.ImportAgentsCSV(c.Request.Context(), io.LimitReader(f, MaxImportSize))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.NewImportResultResponse(result))
}
