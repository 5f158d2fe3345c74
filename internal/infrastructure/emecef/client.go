package emecef

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

var _ appemecef.FiscalClient = (*Client)(nil)

// ── Constantes ────────────────────────────────────────────────────────────────

const (
	// DefaultTimeout délai réseau par appel.
	DefaultTimeout = 25 * time.Second

	apiSuffix     = "/api/invoice"
	legacySuffix  = "/invoice"
	maxBodyBytes  = 1 << 20
	maxRawInError = 2048
)

// ── Client HTTP ───────────────────────────────────────────────────────────────

// Client implémente FiscalClient sur l'API REST e-MECeF.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	log        *logger.Logger
}

// NewClient construit le client. Le délai est appliqué par appel via le contexte.
func NewClient(timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
		log:        log,
	}
}

// InvoiceEndpoint dérive l'URL de l'API facture depuis l'URL configurée.
// Trois conventions coexistent : suffixe déjà correct, ancien suffixe
// /invoice à réécrire, hôte nu auquel ajouter /api/invoice.
func InvoiceEndpoint(base string) string {
	b := strings.TrimRight(strings.TrimSpace(base), "/")
	switch {
	case strings.HasSuffix(b, apiSuffix):
		return b
	case strings.HasSuffix(b, "/api"):
		return b + legacySuffix
	case strings.HasSuffix(b, legacySuffix):
		return strings.TrimSuffix(b, legacySuffix) + apiSuffix
	default:
		return b + apiSuffix
	}
}

// Submit POST {endpoint}.
func (c *Client) Submit(ctx context.Context, creds domain.Credentials, payload *domain.NormalizedPayload) (domain.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("emecef: sérialiser le payload: %w", err)
	}
	resp, status, err := c.do(ctx, creds, http.MethodPost, InvoiceEndpoint(creds.BaseURL), body, "submit")
	if err != nil {
		return nil, domain.WithPayload(err, payload)
	}
	if !isSuccess(status) {
		return nil, domain.WithPayload(httpError("submit", status, resp), payload)
	}
	return resp, nil
}

// Status GET {endpoint} : connectivité et identité vendeur (nim, ifu).
func (c *Client) Status(ctx context.Context, creds domain.Credentials) (domain.Response, error) {
	resp, status, err := c.do(ctx, creds, http.MethodGet, InvoiceEndpoint(creds.BaseURL), nil, "status")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, httpError("status", status, resp)
	}
	return resp, nil
}

// GetInvoice GET {endpoint}/{uid}.
func (c *Client) GetInvoice(ctx context.Context, creds domain.Credentials, uid string) (domain.Response, error) {
	u := InvoiceEndpoint(creds.BaseURL) + "/" + url.PathEscape(uid)
	resp, status, err := c.do(ctx, creds, http.MethodGet, u, nil, "get")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, httpError("get", status, resp)
	}
	return resp, nil
}

type candidate struct {
	method string
	path   string
}

// finalizeCandidates tentatives ordonnées : POST, puis PUT sur 404/405, puis
// le synonyme français. Une tentative au plus par mode d'échec.
func finalizeCandidates(uid string, action domain.FinalizeAction) []candidate {
	base := url.PathEscape(uid) + "/"
	out := []candidate{
		{http.MethodPost, base + string(action)},
		{http.MethodPut, base + string(action)},
	}
	if fr := action.FrenchSynonym(); fr != "" {
		out = append(out, candidate{http.MethodPost, base + fr})
	}
	return out
}

// Finalize confirme ou annule uid. Seules les réponses 404/405 passent au
// candidat suivant ; toute autre réponse est définitive.
func (c *Client) Finalize(ctx context.Context, creds domain.Credentials, uid string, action domain.FinalizeAction) (domain.Response, error) {
	endpoint := InvoiceEndpoint(creds.BaseURL)
	candidates := finalizeCandidates(uid, action)

	var (
		resp   domain.Response
		status int
		err    error
	)
	for i, cand := range candidates {
		resp, status, err = c.do(ctx, creds, cand.method, endpoint+"/"+cand.path, nil, string(action))
		if err != nil {
			return nil, err
		}
		if (status == http.StatusNotFound || status == http.StatusMethodNotAllowed) && i < len(candidates)-1 {
			c.log.Debug().Str("uid", uid).Str("method", cand.method).Str("path", cand.path).
				Int("http_status", status).Msg("finalisation : essai du candidat suivant")
			continue
		}
		break
	}
	if !isSuccess(status) {
		return nil, httpError(string(action), status, resp)
	}
	return resp, nil
}

// do exécute un appel et lit le corps en texte avant décodage JSON.
// Le jeton n'apparaît ni dans les logs ni dans les erreurs.
func (c *Client) do(ctx context.Context, creds domain.Credentials, method, u string, body []byte, action string) (domain.Response, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, &domain.Error{Code: domain.ErrNotConfigured, Message: "URL e-MECeF invalide", Action: action, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn().Str("action", action).Str("url", u).Dur("timeout", c.timeout).Msg("e-MECeF : délai dépassé")
			return nil, 0, &domain.Error{Code: domain.ErrTimeout, Message: fmt.Sprintf("pas de réponse après %s", c.timeout), Action: action, Cause: ctx.Err()}
		}
		c.log.Warn().Err(err).Str("action", action).Str("url", u).Msg("e-MECeF : échec de transport")
		return nil, 0, &domain.Error{Code: domain.ErrTransport, Message: "appel HTTP impossible", Action: action, Cause: unwrapURLError(err)}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, &domain.Error{Code: domain.ErrTimeout, Message: "lecture de la réponse interrompue", Action: action, HTTPStatus: res.StatusCode, Cause: ctx.Err()}
		}
		return nil, 0, &domain.Error{Code: domain.ErrTransport, Message: "lecture de la réponse", Action: action, HTTPStatus: res.StatusCode, Cause: err}
	}

	c.log.Debug().Str("action", action).Str("method", method).Str("url", u).
		Int("http_status", res.StatusCode).Dur("elapsed", time.Since(start)).Msg("e-MECeF : réponse reçue")
	return domain.ParseResponse(raw), res.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func httpError(action string, status int, resp domain.Response) error {
	e := &domain.Error{
		Code:       domain.ErrHTTP,
		Message:    fmt.Sprintf("réponse HTTP %d", status),
		Action:     action,
		HTTPStatus: status,
		Body:       resp,
	}
	if raw, ok := resp[domain.RawKey].(string); ok {
		if len(raw) > maxRawInError {
			raw = raw[:maxRawInError]
		}
		e.RawBody = raw
	}
	return e
}

// unwrapURLError retire l'enveloppe *url.Error (méthode + URL) de la cause.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
