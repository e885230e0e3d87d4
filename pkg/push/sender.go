package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"

	"github.com/SherClockHolmes/webpush-go"
)

type Payload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Notifier is what use cases depend on.
type Notifier interface {
	Send(ctx context.Context, userID string, payload Payload) error
}

type sendFunc func(message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

type Sender struct {
	store      Store
	publicKey  string
	privateKey string
	subscriber string
	logger     *logger.Logger
	send       sendFunc
}

func NewSender(store Store, cfg *config.Config, log *logger.Logger) *Sender {
	return &Sender{
		store:      store,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.VAPIDSubscriber,
		logger:     log,
		send:       webpush.SendNotification,
	}
}

func (s *Sender) PublicKey() string {
	return s.publicKey
}

func (s *Sender) Enabled() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// Send pushes payload to the user's subscription. A user without one is
// skipped. Subscriptions the push service reports as gone are removed.
func (s *Sender) Send(ctx context.Context, userID string, payload Payload) error {
	if !s.Enabled() {
		return nil
	}

	sub, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrNoSubscription) {
		return nil
	}
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	resp, err := s.send(body, sub, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             30,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		s.logger.Info("[PUSH] Subscription expired for user %s, deleting", userID)
		return s.store.Delete(ctx, userID)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
