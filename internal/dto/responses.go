package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/service"
)

// UserResponse публичные данные пользователя, без хэша пароля.
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	Address      *string    `json:"address,omitempty"`
	Role         string     `json:"role"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Phone:        u.Phone,
		Address:      u.Address,
		Role:         string(u.Role),
		DepartmentID: u.DepartmentID,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
	}
}

func NewUserResponses(users []*entity.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// AuthResponse пользователь и access токен.
type AuthResponse struct {
	User        *UserResponse `json:"user"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

func NewAuthResponse(r *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:        NewUserResponse(r.User),
		AccessToken: r.Token.Token,
		TokenType:   r.Token.TokenType,
		ExpiresAt:   r.Token.ExpiresAt,
	}
}

// CreatedAgentResponse пароль показывается только в этом ответе.
type CreatedAgentResponse struct {
	User              *UserResponse `json:"user"`
	GeneratedPassword string        `json:"generated_password"`
}

func NewCreatedAgentResponse(a service.CreatedAgent) CreatedAgentResponse {
	return CreatedAgentResponse{User: NewUserResponse(a.User), GeneratedPassword: a.Password}
}

// ImportResultResponse итог CSV импорта агентов.
type ImportResultResponse struct {
	Total   int                    `json:"total"`
	Success int                    `json:"success"`
	Errors  []string               `json:"errors"`
	Created []CreatedAgentResponse `json:"created"`
}

func NewImportResultResponse(r *service.ImportResult) *ImportResultResponse {
	out := &ImportResultResponse{
		Total:   r.Total,
		Success: r.Success,
		Errors:  r.Errors,
		Created: make([]CreatedAgentResponse, 0, len(r.Created)),
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	for _, a := range r.Created {
		out.Created = append(out.Created, NewCreatedAgentResponse(a))
	}
	return out
}

type NeighborhoodResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PostalCode *string   `json:"postal_code,omitempty"`
}

func NewNeighborhoodResponse(n *entity.Neighborhood) *NeighborhoodResponse {
	if n == nil {
		return nil
	}
	return &NeighborhoodResponse{ID: n.ID, Name: n.Name, PostalCode: n.PostalCode}
}

func NewNeighborhoodResponses(items []entity.Neighborhood) []*NeighborhoodResponse {
	out := make([]*NeighborhoodResponse, 0, len(items))
	for i := range items {
		out = append(out, NewNeighborhoodResponse(&items[i]))
	}
	return out
}

type DepartmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

func NewDepartmentResponse(d *entity.Department) *DepartmentResponse {
	if d == nil {
		return nil
	}
	return &DepartmentResponse{ID: d.ID, Name: d.Name, Description: d.Description}
}

func NewDepartmentResponses(items []entity.Department) []*DepartmentResponse {
	out := make([]*DepartmentResponse, 0, len(items))
	for i := range items {
		out = append(out, NewDepartmentResponse(&items[i]))
	}
	return out
}

type PhotoResponse struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPhotoResponses(photos []entity.Photo) []PhotoResponse {
	out := make([]PhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, PhotoResponse{
			ID:        p.ID,
			FileName:  p.FileName,
			URL:       p.URL,
			MimeType:  p.MimeType,
			Size:      p.Size,
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}

// IncidentResponse обращение; вложенные объекты есть только в детальном ответе.
type IncidentResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority"`
	Address           string     `json:"address"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	CitizenID         uuid.UUID  `json:"citizen_id"`
	AgentID           *uuid.UUID `json:"agent_id,omitempty"`
	NeighborhoodID    *uuid.UUID `json:"neighborhood_id,omitempty"`
	DepartmentID      *uuid.UUID `json:"department_id,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolutionComment *string    `json:"resolution_comment,omitempty"`
	Feedback          *string    `json:"feedback,omitempty"`
	SatisfactionScore *int       `json:"satisfaction_score,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Citizen      *UserResponse         `json:"citizen,omitempty"`
	Agent        *UserResponse         `json:"agent,omitempty"`
	Neighborhood *NeighborhoodResponse `json:"neighborhood,omitempty"`
	Department   *DepartmentResponse   `json:"department,omitempty"`
	Photos       []PhotoResponse       `json:"photos,omitempty"`
}

func NewIncidentResponse(i *entity.Incident) *IncidentResponse {
	if i == nil {
		return nil
	}
	resp := &IncidentResponse{
		ID:                i.ID,
		Title:             i.Title,
		Description:       i.Description,
		Category:          string(i.Category),
		Status:            string(i.Status),
		Priority:          string(i.Priority),
		Address:           i.Address,
		CitizenID:         i.CitizenID,
		AgentID:           i.AgentID,
		NeighborhoodID:    i.NeighborhoodID,
		DepartmentID:      i.DepartmentID,
		ResolvedAt:        i.ResolvedAt,
		ResolutionComment: i.ResolutionComment,
		Feedback:          i.Feedback,
		SatisfactionScore: i.SatisfactionScore,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		Citizen:           NewUserResponse(i.Citizen),
		Agent:             NewUserResponse(i.Agent),
		Neighborhood:      NewNeighborhoodResponse(i.Neighborhood),
		Department:        NewDepartmentResponse(i.Department),
	}
	if i.Coordinates != nil {
		lat, lng := i.Coordinates.Latitude, i.Coordinates.Longitude
		resp.Latitude, resp.Longitude = &lat, &lng
	}
	if len(i.Photos) > 0 {
		resp.Photos = NewPhotoResponses(i.Photos)
	}
	return resp
}

func NewIncidentResponses(items []*entity.Incident) []*IncidentResponse {
	out := make([]*IncidentResponse, 0, len(items))
	for _, i := range items {
		out = append(out, NewIncidentResponse(i))
	}
	return out
}

type HistoryResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewHistoryResponses(entries []entity.IncidentHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type NotificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       string     `json:"type"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewNotificationResponse(n entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		IncidentID: n.IncidentID,
		Title:      n.Title,
		Message:    n.Message,
		Type:       string(n.Type),
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

func NewNotificationResponses(items []entity.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NewNotificationResponse(n))
	}
	return out
}

type ReportResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Format      string    `json:"format"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewReportResponse(r *entity.Report) *ReportResponse {
	return &ReportResponse{
		ID:          r.ID,
		Title:       r.Title,
		Type:        r.Type,
		Format:      r.Format,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

func NewReportResponses(items []entity.Report) []*ReportResponse {
	out := make([]*ReportResponse, 0, len(items))
	for i := range items {
		out = append(out, NewReportResponse(&items[i]))
	}
	return out
}

// UnreadCountResponse число непрочитанных уведомлений.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
