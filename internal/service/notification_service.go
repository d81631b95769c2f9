package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/metrics"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

// EventNotification имя события WebSocket для нового уведомления.
const EventNotification = "notification"

// Pusher доставляет сообщение подключённым клиентам пользователя.
type Pusher interface {
	SendToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService почтовый ящик пользователя: сохранение, выдача, отметки о прочтении.
type NotificationService struct {
	repo   repository.NotificationRepository
	pusher Pusher
}

// NewNotificationService pusher может быть nil, тогда уведомления только сохраняются.
func NewNotificationService(repo repository.NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// NotificationList страница уведомлений.
type NotificationList struct {
	Notifications []entity.Notification `json:"notifications"`
	Total         int                   `json:"total"`
}

// Notify сохраняет уведомление и отправляет его по WebSocket.
// Ошибки не возвращаются: основная операция уже зафиксирована.
func (s *NotificationService) Notify(ctx context.Context, req incident.NotificationRequest) {
	n := &entity.Notification{
		UserID:     req.RecipientID,
		IncidentID: req.IncidentID,
		Title:      req.Title,
		Message:    req.Message,
		Type:       req.Type,
	}

	err := s.repo.Create(ctx, n)
	metrics.NotificationsTotal.WithLabelValues(string(req.Type), metrics.Result(err)).Inc()
	if err != nil {
		logger.L().WithFields(logrus.Fields{
			"user_id": req.RecipientID,
			"type":    req.Type,
		}).WithError(err).Warn("notification: не удалось сохранить уведомление")
		return
	}

	if s.pusher == nil {
		return
	}
	if err := s.pusher.SendToUser(n.UserID, EventNotification, n); err != nil {
		logger.L().WithField("user_id", n.UserID).WithError(err).Warn("notification: push не отправлен")
	}
}

// List уведомления пользователя, новые первыми.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page repository.Page, unreadOnly bool) (*NotificationList, error) {
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	items, total, err := s.repo.List(ctx, userID, page, unreadOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.Notification{}
	}
	return &NotificationList{Notifications: items, Total: total}, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead отмечает уведомление прочитанным; чужое уведомление FORBIDDEN.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return apperror.NotFound("notification", id)
	}
	if n.UserID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "notification belongs to another user")
	}
	if n.IsRead {
		return nil
	}
	return s.repo.MarkAsRead(ctx, id)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

var _ incident.Notifier = (*NotificationService)(nil)
