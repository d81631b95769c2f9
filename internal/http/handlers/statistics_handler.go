package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/dto"
	"github.com/ignatzorin/citesignal-backend/internal/http/handlers/common"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/statistics"
)

// StatisticsUseCases сводная статистика и отчёты.
type StatisticsUseCases struct {
	General interface {
		Execute(ctx context.Context) (*statistics.GeneralStatistics, error)
	}
	Generate interface {
		Execute(ctx context.Context, in statistics.GenerateReportInput) (*entity.Report, error)
	}
	List interface {
		Execute(ctx context.Context, page repository.Page) ([]entity.Report, int, error)
	}
	Open interface {
		Execute(ctx context.Context, id uuid.UUID) (*entity.Report, io.ReadCloser, error)
	}
}

type StatisticsHandler struct {
	uc StatisticsUseCases
}

func NewStatisticsHandler(uc StatisticsUseCases) *StatisticsHandler {
	return &StatisticsHandler{uc: uc}
}

// General обрабатывает GET /api/statistics.
func (h *StatisticsHandler) General(c *gin.Context) {
	stats, err := h.uc.General.Execute(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}

// GenerateReport обрабатывает POST /api/reports.
func (h *StatisticsHandler) GenerateReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	from, to, err := req.Period()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, err := h.uc.Generate.Execute(c.Request.Context(), statistics.GenerateReportInput{
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, dto.NewReportResponse(report))
}

// ListReports обрабатывает GET /api/reports.
func (h *StatisticsHandler) ListReports(c *gin.Context) {
	page := common.GetPagination(c)

	reports, total, err := h.uc.List.Execute(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Paginated(c, dto.NewReportResponses(reports), total, page.Limit, page.Offset)
}

// DownloadReport обрабатывает GET /api/reports/:id/download.
func (h *StatisticsHandler) DownloadReport(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid report id")
		return
	}

	report, body, err := h.uc.Open.Execute(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path.Base(report.FilePath)))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		logger.L().WithField("report_id", id).WithError(err).Warn("reports: выгрузка прервана")
	}
}
