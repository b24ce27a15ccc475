package application

import (
	"github.com/duely/duely/internal/subscription/domain"
)

type NotificationService struct {
	repo domain.NotificationRepository
}

func NewNotificationService(repo domain.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) GetUserNotifications(userID string, unreadOnly bool, limit, page int) ([]domain.Notification, error) {
	notifications, err := s.repo.FindByUser(userID, unreadOnly, limit, page)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		return []domain.Notification{}, nil
	}
	return notifications, nil
}

func (s *NotificationService) CountUnread(userID string) (int, error) {
	return s.repo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(notificationID, userID string) error {
	return s.repo.MarkRead(notificationID, userID)
}

func (s *NotificationService) MarkAllRead(userID string) error {
	return s.repo.MarkAllRead(userID)
}
