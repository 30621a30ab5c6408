package event

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hamzaawan7/blackcms/internal/store"
)

// WebhookSink POSTs lifecycle events to the endpoints registered for the
// event's tenant. One endpoint failing does not stop delivery to the rest;
// the sink reports a combined error so the bus can count and retry.
type WebhookSink struct {
	store  store.Store
	client *http.Client
}

// NewWebhookSink creates a webhook sink reading endpoint registrations from
// the store. The client's timeout is left to the bus's per-sink deadline.
func NewWebhookSink(s store.Store) *WebhookSink {
	return &WebhookSink{store: s, client: &http.Client{}}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Deliver(ctx context.Context, evt Event) error {
	endpoints, err := w.store.ListWebhookEndpoints(ctx, evt.TenantID)
	if err != nil {
		return fmt.Errorf("list webhook endpoints: %w", err)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var errs []error
	for _, ep := range endpoints {
		if !ep.Subscribed(evt.Name) {
			continue
		}
		if err := w.post(ctx, ep.URL, ep.Secret, body); err != nil {
			errs = append(errs, fmt.Errorf("endpoint %s: %w", ep.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *WebhookSink) post(ctx context.Context, url, secret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Blackcms-Signature", sign(secret, body))

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
