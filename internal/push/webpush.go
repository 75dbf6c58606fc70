package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// VAPIDConfig holds the web push signing material.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Ready reports whether both keys are configured.
func (c VAPIDConfig) Ready() bool {
	return c.PublicKey != "" && c.PrivateKey != ""
}

// WebPushSender delivers notifications over the Web Push protocol.
type WebPushSender struct {
	config VAPIDConfig
}

// NewWebPushSender returns a sender signing with config.
func NewWebPushSender(config VAPIDConfig) *WebPushSender {
	return &WebPushSender{config: config}
}

// Send delivers one notification. A 404/410 from the push service
// maps to ErrGone so the dispatcher retires the subscription.
func (s *WebPushSender) Send(ctx context.Context, sub *Subscription, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      s.config.Subject,
		VAPIDPublicKey:  s.config.PublicKey,
		VAPIDPrivateKey: s.config.PrivateKey,
		TTL:             120,
	})
	if err != nil {
		return fmt.Errorf("web push send failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
