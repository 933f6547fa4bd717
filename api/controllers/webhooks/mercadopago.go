package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tiendamx/tienda-backend/api/responses"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/metrics"

	mercadopagowebhook "github.com/tiendamx/tienda-backend/internal/webhooks/mercadopago"
)

const (
	maxWebhookBodyBytes = 64 << 10
	providerName        = "mercadopago"
)

// MercadoPago handles payment notifications. The provider sends the topic and
// payment id both as query parameters and in the JSON body depending on the
// notification mode, so both are read and the body wins when present.
//
// The provider retries any non-2xx response, so handled-but-ignored
// notifications (unknown topics, unmapped statuses) still return 200.
func MercadoPago(svc *mercadopagowebhook.Service, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		notification := notificationFromQuery(r)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to read webhook body"))
			return
		}
		if len(body) > 0 {
			var fromBody mercadopagowebhook.Notification
			if err := json.Unmarshal(body, &fromBody); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
				return
			}
			if fromBody.Type != "" {
				notification.Type = fromBody.Type
			}
			if fromBody.Data.ID != "" {
				notification.Data.ID = fromBody.Data.ID
			}
		}

		m.IncReceived(providerName)

		outcome, err := svc.HandleNotification(r.Context(), notification)
		if err != nil {
			m.IncFailed(providerName)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		switch outcome {
		case mercadopagowebhook.OutcomeProcessed:
			m.IncProcessed(providerName, notification.Type)
		case mercadopagowebhook.OutcomeReplayed:
			m.IncReplayed()
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}

func notificationFromQuery(r *http.Request) mercadopagowebhook.Notification {
	query := r.URL.Query()

	var n mercadopagowebhook.Notification
	n.Type = strings.TrimSpace(query.Get("type"))
	if n.Type == "" {
		n.Type = strings.TrimSpace(query.Get("topic"))
	}
	n.Data.ID = strings.TrimSpace(query.Get("data.id"))
	if n.Data.ID == "" {
		n.Data.ID = strings.TrimSpace(query.Get("id"))
	}
	return n
}
