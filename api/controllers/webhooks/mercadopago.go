package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/phenomboxing/storefront/api/responses"
	"github.com/phenomboxing/storefront/internal/checkout"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/logger"
	"github.com/phenomboxing/storefront/pkg/mercadopago"
)

const maxNotificationBytes = 64 << 10

type paymentConfirmer interface {
	Confirm(ctx context.Context, input checkout.ConfirmInput) (*checkout.ConfirmResult, error)
}

type ack struct {
	Received bool                    `json:"received"`
	Ignored  bool                    `json:"ignored,omitempty"`
	Result   *checkout.ConfirmResult `json:"result,omitempty"`
}

// MercadoPagoWebhook receives payment notifications. Non-payment topics are
// acknowledged and ignored. When secret is set, the x-signature header must
// match.
func MercadoPagoWebhook(svc paymentConfirmer, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		note, err := parseNotification(r, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if secret != "" {
			dataID := r.URL.Query().Get("data.id")
			if dataID == "" {
				dataID = note.Data.ID
			}
			if err := mercadopago.VerifySignature(secret, r.Header.Get(mercadopago.HeaderSignature), dataID, r.Header.Get(mercadopago.HeaderRequestID)); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook signature"))
				return
			}
		}

		if !note.IsPayment() {
			if logg != nil {
				logg.Debug(logg.WithField(ctx, "notification_type", note.Type), "mercadopago notification ignored")
			}
			responses.WriteSuccess(w, ack{Received: true, Ignored: true})
			return
		}
		if strings.TrimSpace(note.Data.ID) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing"))
			return
		}

		result, err := svc.Confirm(ctx, checkout.ConfirmInput{PaymentID: note.Data.ID})
		if err != nil {
			// unknown orders are not ours to retry
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				if logg != nil {
					logg.WarnErr(ctx, "mercadopago notification for unknown order", err)
				}
				responses.WriteSuccess(w, ack{Received: true, Ignored: true})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack{Received: true, Result: result})
	}
}

// parseNotification accepts the JSON body and falls back to the legacy
// query-string form (?topic=payment&id=123 or ?type=payment&data.id=123).
func parseNotification(r *http.Request, payload []byte) (mercadopago.Notification, error) {
	var note mercadopago.Notification
	if len(bytes.TrimSpace(payload)) > 0 {
		var raw struct {
			Type   string `json:"type"`
			Topic  string `json:"topic"`
			Action string `json:"action"`
			Data   struct {
				ID json.RawMessage `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return note, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification body")
		}
		note.Type = firstNonEmpty(raw.Type, raw.Topic)
		note.Action = raw.Action
		note.Data.ID = rawID(raw.Data.ID)
	}

	q := r.URL.Query()
	if note.Type == "" {
		note.Type = firstNonEmpty(q.Get("type"), q.Get("topic"))
	}
	if note.Data.ID == "" {
		note.Data.ID = firstNonEmpty(q.Get("data.id"), q.Get("id"))
	}
	return note, nil
}

// rawID accepts both "123" and 123.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
