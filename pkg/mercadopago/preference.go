package mercadopago

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// PreferenceItem is one purchasable line in a checkout preference.
type PreferenceItem struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	PictureURL  string          `json:"picture_url,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CurrencyID  string          `json:"currency_id"`
}

// PreferencePayer identifies the buyer on the provider side.
type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone *struct {
		Number string `json:"number,omitempty"`
	} `json:"phone,omitempty"`
}

// BackURLs are the buyer redirect targets for each payment outcome.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the create-preference payload.
type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               PreferencePayer  `json:"payer"`
	BackURLs            BackURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return,omitempty"`
	NotificationURL     string           `json:"notification_url"`
	ExternalReference   string           `json:"external_reference"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
}

// Preference is the provider's created checkout session.
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// CreatePreference registers a checkout preference and returns the provider
// session with its redirect URL.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if req.StatementDescriptor == "" {
		req.StatementDescriptor = c.statementDescriptor
	}
	for i := range req.Items {
		if req.Items[i].CurrencyID == "" {
			req.Items[i].CurrencyID = c.currencyID
		}
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref, "create_preference"); err != nil {
		return nil, err
	}
	return &pref, nil
}
