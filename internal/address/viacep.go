package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paloma-store/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// PostalCodeLength is the number of digits in a complete CEP.
const PostalCodeLength = 8

// Normalize strips everything but digits from raw.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Complete reports whether a normalized code has the full length.
func Complete(cep string) bool {
	return len(cep) == PostalCodeLength
}

// LookupResult is what the postal code service knows about a CEP.
type LookupResult struct {
	CEP          string
	Street       string
	Neighborhood string
	City         string
	State        string
}

// Lookup resolves a normalized CEP. Implementations return
// model.ErrPostalCodeNotFound when the code does not exist and
// model.ErrLookupFailed when the service cannot answer.
type Lookup interface {
	Lookup(ctx context.Context, cep string) (*LookupResult, error)
}

// viaCEPResponse is the JSON body of https://viacep.com.br/ws/<cep>/json/.
// "erro" is true (or "true" on newer deployments) for unknown codes.
type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// ViaCEPClient queries the ViaCEP web service. Concurrent lookups of the same
// code share one request.
type ViaCEPClient struct {
	baseURL string
	client  *http.Client
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewViaCEPClient creates a client for baseURL (e.g. https://viacep.com.br).
func NewViaCEPClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *ViaCEPClient {
	return &ViaCEPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "viacep").Logger(),
	}
}

// Lookup fetches the address for cep.
func (c *ViaCEPClient) Lookup(ctx context.Context, cep string) (*LookupResult, error) {
	cep = Normalize(cep)
	if !Complete(cep) {
		return nil, model.ErrPostalCodeIncomplete
	}

	ch := c.group.DoChan(cep, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), cep)
	})

	select {
	case <-ctx.Done():
		return nil, model.ErrLookupFailed.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*LookupResult)
		return &out, nil
	}
}

func (c *ViaCEPClient) fetch(ctx context.Context, cep string) (*LookupResult, error) {
	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.ErrLookupFailed.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("postal_code", cep).Msg("postal code lookup failed")
		return nil, model.ErrLookupFailed.Wrap(err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for syntactically invalid codes.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, model.ErrPostalCodeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("postal_code", cep).Msg("unexpected postal code service status")
		return nil, model.ErrLookupFailed.Wrap(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body viaCEPResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		c.logger.Warn().Err(err).Str("postal_code", cep).Msg("malformed postal code response")
		return nil, model.ErrLookupFailed.Wrap(err)
	}
	if body.notFound() {
		c.logger.Debug().Str("postal_code", cep).Msg("postal code not found")
		return nil, model.ErrPostalCodeNotFound
	}

	return &LookupResult{
		CEP:          cep,
		Street:       strings.TrimSpace(body.Logradouro),
		Neighborhood: strings.TrimSpace(body.Bairro),
		City:         strings.TrimSpace(body.Localidade),
		State:        strings.ToUpper(strings.TrimSpace(body.UF)),
	}, nil
}
