// Package notify provides outbound notification delivery adapters.
// Пакет notify предоставляет адаптеры исходящей доставки уведомлений.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/circuitbreaker"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/telemetry"
)

// WebhookNotifier implements port.Notifier by POSTing events to an
// HTTPS webhook endpoint. Delivery is best-effort: the caller's flow
// never fails because a notification could not be sent. A circuit
// breaker stops hammering the endpoint while it is down.
// WebhookNotifier реализует port.Notifier, отправляя события POST-запросом
// на HTTPS webhook. Доставка выполняется по принципу "best-effort": поток
// вызывающего никогда не падает из-за недоставленного уведомления.
// Circuit breaker прекращает запросы к эндпоинту, пока тот недоступен.
type WebhookNotifier struct {
	url     string                         // Webhook endpoint / Эндпоинт webhook
	client  *http.Client                   // HTTP client / HTTP-клиент
	breaker *circuitbreaker.CircuitBreaker // Delivery breaker / Breaker доставки
	log     *logger.Logger                 // Logger / Логгер
}

// NewWebhookNotifier creates a WebhookNotifier for the given endpoint URL.
// An empty URL produces a notifier that drops every event, which keeps
// local development working without a receiver.
// NewWebhookNotifier создаёт WebhookNotifier для заданного URL эндпоинта.
// Пустой URL создаёт notifier, отбрасывающий все события, что позволяет
// локальной разработке работать без получателя.
func NewWebhookNotifier(url string, log *logger.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:        "notify-webhook",
			MaxFailures: 3,
			Timeout:     time.Minute,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
		log: log,
	}
}

// Emit delivers a notification event. Most callers treat delivery as
// best-effort and ignore the error; flows that depend on the message
// reaching the user (email OTP) check it.
// Emit доставляет событие уведомления. Большинство вызывающих считают
// доставку "best-effort" и игнорируют ошибку; потоки, зависящие от
// получения сообщения пользователем (email OTP), проверяют её.
func (n *WebhookNotifier) Emit(ctx context.Context, event *domain.Notification) error {
	if n.url == "" {
		n.log.Debug("notification dropped: no webhook configured", "type", event.Type)
		return nil
	}

	telemetry.AddSpanEvent(ctx, "notification.dispatch",
		telemetry.AttrNotifyType.String(event.Type))

	err := n.breaker.Execute(ctx, func(ctx context.Context) error {
		return n.post(ctx, event)
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		n.log.Warn("notification delivery failed",
			"type", event.Type,
			"user_id", event.UserID,
			"error", err,
		)
		n.log.LogNotification(event.Type, event.UserID, false)
		return err
	}

	n.log.LogNotification(event.Type, event.UserID, true)
	return nil
}

// post encodes and sends a single event.
// post кодирует и отправляет одно событие.
func (n *WebhookNotifier) post(ctx context.Context, event *domain.Notification) error {
	body, err := json.Marshal(event)
	if err != nil {
		return apperror.Internal("failed to marshal notification", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return apperror.Internal("failed to build notification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apperror.ServiceUnavailable("notification endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperror.ServiceUnavailable(
			fmt.Sprintf("notification endpoint returned status %d", resp.StatusCode))
	}
	return nil
}
