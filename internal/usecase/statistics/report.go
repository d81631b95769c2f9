package statistics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

// ReportStore файловое хранилище сгенерированных отчётов.
type ReportStore interface {
	Save(ctx context.Context, name string, content []byte) (path string, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// PeriodStatistics статистика по обращениям, созданным в периоде.
type PeriodStatistics struct {
	From                time.Time      `json:"from"`
	To                  time.Time      `json:"to"`
	TotalIncidents      int            `json:"total_incidents"`
	IncidentsByStatus   map[string]int `json:"incidents_by_status"`
	IncidentsByCategory map[string]int `json:"incidents_by_category"`
	Resolved            int            `json:"resolved"`
	ResolutionRate      float64        `json:"resolution_rate"`
	AverageSatisfaction *float64       `json:"average_satisfaction,omitempty"`
}

// ComputePeriodStatistics агрегирует уже загруженные обращения.
func ComputePeriodStatistics(from, to time.Time, incidents []*entity.Incident) *PeriodStatistics {
	byStatus := make(map[valueobject.IncidentStatus]int)
	byCategory := make(map[valueobject.Category]int)
	scoreSum, scored := 0, 0
	for _, i := range incidents {
		byStatus[i.Status]++
		byCategory[i.Category]++
		if i.SatisfactionScore != nil {
			scoreSum += *i.SatisfactionScore
			scored++
		}
	}
	total, resolved := resolutionCounts(incidents)

	stats := &PeriodStatistics{
		From:                from,
		To:                  to,
		TotalIncidents:      total,
		IncidentsByStatus:   zeroFilledStatuses(byStatus),
		IncidentsByCategory: zeroFilledCategories(byCategory),
		Resolved:            resolved,
		ResolutionRate:      ResolutionRate(resolved, total),
	}
	if scored > 0 {
		avg := decimal.NewFromInt(int64(scoreSum)).Div(decimal.NewFromInt(int64(scored))).Round(2).InexactFloat64()
		stats.AverageSatisfaction = &avg
	}
	return stats
}

type GenerateReportInput struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

type GenerateReportUseCase struct {
	incidents repository.IncidentRepository
	reports   repository.ReportRepository
	store     ReportStore
	now       func() time.Time
}

func NewGenerateReportUseCase(incidents repository.IncidentRepository, reports repository.ReportRepository, store ReportStore) *GenerateReportUseCase {
	return &GenerateReportUseCase{incidents: incidents, reports: reports, store: store, now: time.Now}
}

// Execute формирует CSV-отчёт за период и сохраняет запись о нём.
func (uc *GenerateReportUseCase) Execute(ctx context.Context, input GenerateReportInput) (*entity.Report, error) {
	if input.From.IsZero() || input.To.IsZero() {
		return nil, apperror.Validation("report period is required")
	}
	if input.To.Before(input.From) {
		return nil, apperror.Validation("end date must not be before start date")
	}

	incidents, err := uc.incidents.FindCreatedBetween(ctx, input.From, input.To)
	if err != nil {
		return nil, err
	}
	stats := ComputePeriodStatistics(input.From, input.To, incidents)

	content, err := RenderCSV(stats, incidents)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to render report")
	}

	now := uc.now().UTC()
	report := &entity.Report{
		ID:          uuid.New(),
		Title:       fmt.Sprintf("General statistics %s - %s", input.From.Format("2006-01-02"), input.To.Format("2006-01-02")),
		Type:        entity.ReportTypeGeneralStatistics,
		Format:      entity.ReportFormatCSV,
		PeriodStart: input.From,
		PeriodEnd:   input.To,
		CreatedBy:   input.UserID,
		CreatedAt:   now,
	}

	path, err := uc.store.Save(ctx, report.ID.String()+".csv", content)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to store report")
	}
	report.FilePath = path

	if err := uc.reports.Create(ctx, report); err != nil {
		if delErr := uc.store.Delete(ctx, path); delErr != nil {
			logger.L().WithError(delErr).WithField("path", path).Warn("report: orphan file left")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to save report")
	}

	logger.L().WithField("report_id", report.ID).WithField("incidents", stats.TotalIncidents).Info("report: generated")
	return report, nil
}

// RenderCSV сводка, пустая строка, затем по строке на обращение.
func RenderCSV(stats *PeriodStatistics, incidents []*entity.Incident) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"metric", "value"},
		{"period_start", stats.From.Format(time.RFC3339)},
		{"period_end", stats.To.Format(time.RFC3339)},
		{"total_incidents", strconv.Itoa(stats.TotalIncidents)},
		{"resolved", strconv.Itoa(stats.Resolved)},
		{"resolution_rate", strconv.FormatFloat(stats.ResolutionRate, 'f', 2, 64)},
	}
	for _, s := range valueobject.AllIncidentStatuses() {
		rows = append(rows, []string{"status_" + string(s), strconv.Itoa(stats.IncidentsByStatus[string(s)])})
	}
	for _, c := range valueobject.AllCategories() {
		rows = append(rows, []string{"category_" + string(c), strconv.Itoa(stats.IncidentsByCategory[string(c)])})
	}
	if stats.AverageSatisfaction != nil {
		rows = append(rows, []string{"average_satisfaction", strconv.FormatFloat(*stats.AverageSatisfaction, 'f', 2, 64)})
	}
	rows = append(rows, []string{},
		[]string{"id", "title", "category", "status", "priority", "address", "created_at", "resolved_at", "satisfaction_score"})

	for _, i := range incidents {
		resolvedAt, score := "", ""
		if i.ResolvedAt != nil {
			resolvedAt = i.ResolvedAt.Format(time.RFC3339)
		}
		if i.SatisfactionScore != nil {
			score = strconv.Itoa(*i.SatisfactionScore)
		}
		rows = append(rows, []string{
			i.ID.String(), i.Title, string(i.Category), string(i.Status), string(i.Priority),
			i.Address, i.CreatedAt.Format(time.RFC3339), resolvedAt, score,
		})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type ListReportsUseCase struct {
	reports repository.ReportRepository
}

func NewListReportsUseCase(reports repository.ReportRepository) *ListReportsUseCase {
	return &ListReportsUseCase{reports: reports}
}

func (uc *ListReportsUseCase) Execute(ctx context.Context, page repository.Page) ([]entity.Report, int, error) {
	return uc.reports.List(ctx, page)
}

// OpenReportUseCase открывает файл отчёта для скачивания.
type OpenReportUseCase struct {
	reports repository.ReportRepository
	store   ReportStore
}

func NewOpenReportUseCase(reports repository.ReportRepository, store ReportStore) *OpenReportUseCase {
	return &OpenReportUseCase{reports: reports, store: store}
}

func (uc *OpenReportUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.Report, io.ReadCloser, error) {
	report, err := uc.reports.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if report == nil {
		return nil, nil, apperror.NotFound("report", id)
	}
	rc, err := uc.store.Open(ctx, report.FilePath)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeNotFound, "report file is missing")
	}
	return report, rc, nil
}
