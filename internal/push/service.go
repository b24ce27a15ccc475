package push

import (
	"encoding/json"
	"errors"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInternalError = errors.New("internal Server Error")

type Service interface {
	Subscribe(userID, endpoint, p256dh, auth string) error
	Unsubscribe(userID, endpoint string) error
	SendToUser(userID, title, body string) error
	PublicKey() string
}

type service struct {
	repo            Repository
	vapidPublicKey  string
	vapidPrivateKey string
	vapidSubject    string
	logger          *logrus.Logger
}

func NewPushService(repo Repository, vapidPublicKey, vapidPrivateKey, vapidSubject string, logger *logrus.Logger) Service {
	return &service{
		repo:            repo,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		vapidSubject:    vapidSubject,
		logger:          logger,
	}
}

func (s *service) PublicKey() string {
	return s.vapidPublicKey
}

func (s *service) Subscribe(userID, endpoint, p256dh, auth string) error {
	subscription := &Subscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	}
	if err := s.repo.save(subscription); err != nil {
		s.logger.Errorf("error saving push subscription: %v", err)
		return ErrInternalError
	}
	return nil
}

func (s *service) Unsubscribe(userID, endpoint string) error {
	err := s.repo.deleteByEndpoint(userID, endpoint)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return ErrSubscriptionNotFound
		}
		s.logger.Errorf("error deleting push subscription: %v", err)
		return ErrInternalError
	}
	return nil
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendToUser fans the message out to every endpoint the user registered.
// Endpoints that report 404/410 are gone, they are pruned instead of retried.
func (s *service) SendToUser(userID, title, body string) error {
	subscriptions, err := s.repo.findByUser(userID)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{Title: title, Body: body})
	if err != nil {
		return err
	}

	var lastErr error
	for _, subscription := range subscriptions {
		target := &webpush.Subscription{
			Endpoint: subscription.Endpoint,
			Keys: webpush.Keys{
				P256dh: subscription.P256dh,
				Auth:   subscription.Auth,
			},
		}
		resp, err := webpush.SendNotification(payload, target, &webpush.Options{
			Subscriber:      s.vapidSubject,
			VAPIDPublicKey:  s.vapidPublicKey,
			VAPIDPrivateKey: s.vapidPrivateKey,
			TTL:             3600,
		})
		if err != nil {
			s.logger.Warnf("push send failed for endpoint %s: %v", subscription.Endpoint, err)
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if err := s.repo.deleteEndpoint(subscription.Endpoint); err != nil {
				s.logger.Warnf("could not prune gone endpoint: %v", err)
			}
		}
		resp.Body.Close()
	}
	return lastErr
}
