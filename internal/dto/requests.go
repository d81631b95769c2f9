package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegisterRequest регистрация гражданина.
type RegisterRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Password  string  `json:"password" binding:"required"`
}

// LoginRequest вход по e-mail и паролю.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SubmitIncidentRequest новое обращение; принимается как JSON или multipart форма.
type SubmitIncidentRequest struct {
	Title          string   `json:"title" form:"title" binding:"required"`
	Description    string   `json:"description" form:"description" binding:"required"`
	Category       string   `json:"category" form:"category" binding:"required"`
	Priority       string   `json:"priority" form:"priority"`
	Address        string   `json:"address" form:"address" binding:"required"`
	Latitude       *float64 `json:"latitude" form:"latitude"`
	Longitude      *float64 `json:"longitude" form:"longitude"`
	NeighborhoodID *string  `json:"neighborhood_id" form:"neighborhood_id"`
}

// UpdateIncidentRequest частичное обновление: отсутствующее поле не меняется.
type UpdateIncidentRequest struct {
	Title             *string  `json:"title" form:"title"`
	Description       *string  `json:"description" form:"description"`
	Category          *string  `json:"category" form:"category"`
	Priority          *string  `json:"priority" form:"priority"`
	Address           *string  `json:"address" form:"address"`
	Latitude          *float64 `json:"latitude" form:"latitude"`
	Longitude         *float64 `json:"longitude" form:"longitude"`
	NeighborhoodID    *string  `json:"neighborhood_id" form:"neighborhood_id"`
	DepartmentID      *string  `json:"department_id" form:"department_id"`
	AgentID           *string  `json:"agent_id" form:"agent_id"`
	Status            *string  `json:"status" form:"status"`
	ResolutionComment *string  `json:"resolution_comment" form:"resolution_comment"`
}

// CloseIncidentRequest отзыв гражданина при закрытии.
type CloseIncidentRequest struct {
	Feedback          *string `json:"feedback"`
	SatisfactionScore *int    `json:"satisfaction_score"`
}

// CreateAgentRequest учётная запись муниципального агента.
type CreateAgentRequest struct {
	FirstName    string  `json:"first_name" binding:"required"`
	LastName     string  `json:"last_name" binding:"required"`
	Email        string  `json:"email" binding:"required"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	DepartmentID *string `json:"department_id"`
}

// GenerateReportRequest период отчёта, даты в формате 2006-01-02 или RFC3339.
type GenerateReportRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

var errInvalidDate = errors.New("date must be YYYY-MM-DD or RFC3339")

// Period разбирает границы отчёта. Дата без времени в конце периода включает весь день.
func (r GenerateReportRequest) Period() (time.Time, time.Time, error) {
	from, _, err := ParseDate(r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	to, dateOnly, err := ParseDate(r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	if dateOnly {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// ParseDate возвращает признак dateOnly для значений без времени.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, errInvalidDate
}

// ParseOptionalUUID пустая строка и nil означают отсутствие значения.
func ParseOptionalUUID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid UUID", field)
	}
	return &id, nil
}
