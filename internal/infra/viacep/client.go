// Package viacep provides the postal-code lookup client used by the
// address form autofill.
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("viacep")

// Client looks up Brazilian postal codes. Lookups are keystroke-triggered,
// so a bulkhead caps how many can be in flight at once.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewClient creates a postal lookup client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 4
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(maxConc),
	}
}

// viaCEPResponse maps the ViaCEP wire format. A miss comes back as
// HTTP 200 with {"erro": true}.
type viaCEPResponse struct {
	Logradouro  string `json:"logradouro"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Complemento string `json:"complemento"`
	Erro        bool   `json:"erro"`
}

// Lookup resolves an 8-digit CEP. A miss returns *domain.ErrNotFound,
// which the form treats as non-fatal.
func (c *Client) Lookup(ctx context.Context, cep string) (*domain.PostalAddress, error) {
	ctx, span := tracer.Start(ctx, "ViaCEP.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("cep", cep))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var addr *domain.PostalAddress
	var opErr error

	// Lookup misses are everyday input noise, so they bypass the breaker
	// failure count; only transport trouble should open it.
	_, err := c.cb.Execute(func() (any, error) {
		opErr = resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, cep)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return &domain.ErrNetwork{Err: err}
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusBadRequest {
				return &domain.ErrNotFound{Resource: "cep", ID: cep}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("viacep returned status %d", resp.StatusCode)
			}

			var body viaCEPResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode viacep response: %w", err)
			}
			if body.Erro {
				return &domain.ErrNotFound{Resource: "cep", ID: cep}
			}

			addr = &domain.PostalAddress{
				Street:       body.Logradouro,
				Neighborhood: body.Bairro,
				City:         body.Localidade,
				State:        body.UF,
				Complement:   body.Complemento,
			}
			return nil
		})
		if opErr != nil && domain.Permanent(opErr) {
			return nil, nil
		}
		return nil, opErr
	})

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, &domain.ErrCircuitOpen{Service: "viacep"}
	}
	if opErr != nil {
		if domain.Permanent(opErr) {
			return nil, opErr
		}
		return nil, &domain.ErrExternalService{Service: "viacep", Err: opErr}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "viacep", Err: err}
	}

	return addr, nil
}
