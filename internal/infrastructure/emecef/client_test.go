package emecef_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/internal/infrastructure/emecef"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

const token = "jeton-secret"

type call struct {
	method string
	path   string
	auth   string
	body   string
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.calls = append(r.calls, call{req.Method, req.URL.Path, req.Header.Get("Authorization"), string(b)})
	r.mu.Unlock()
}

func creds(base string) domain.Credentials {
	return domain.Credentials{PosID: "pos-1", BaseURL: base, Token: token}
}

func newClient() *emecef.Client {
	return emecef.NewClient(2*time.Second, logger.Nop())
}

func TestInvoiceEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://sygmef.impots.bj/emcf/api/invoice":  "https://sygmef.impots.bj/emcf/api/invoice",
		"https://sygmef.impots.bj/emcf/api/invoice/": "https://sygmef.impots.bj/emcf/api/invoice",
		"https://sygmef.impots.bj/emcf/invoice":      "https://sygmef.impots.bj/emcf/api/invoice",
		"https://sygmef.impots.bj/emcf/api":          "https://sygmef.impots.bj/emcf/api/invoice",
		"https://sygmef.impots.bj/emcf":              "https://sygmef.impots.bj/emcf/api/invoice",
		" http://localhost:8081/ ":                   "http://localhost:8081/api/invoice",
	}
	for in, want := range cases {
		assert.Equal(t, want, emecef.InvoiceEndpoint(in), in)
	}
}

// ── Soumission ──

func TestSubmit_EnvoieLePayloadAvecJeton(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uid":"U-42","ta":0,"tb":18}`))
	}))
	defer srv.Close()

	n := domain.NewNormalizer(domain.DateFormatISO, nil)
	payload := n.Normalize(map[string]any{
		"customer": map[string]any{"name": "A"},
		"items":    []any{map[string]any{"name": "Wine", "quantity": 2, "unitPrice": 1000, "taxGroup": "B"}},
	}, nil)

	resp, err := newClient().Submit(context.Background(), creds(srv.URL), payload)
	require.NoError(t, err)

	uid, err := domain.ExtractUID(resp)
	require.NoError(t, err)
	assert.Equal(t, "U-42", uid)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, http.MethodPost, rec.calls[0].method)
	assert.Equal(t, "/api/invoice", rec.calls[0].path)
	assert.Equal(t, "Bearer "+token, rec.calls[0].auth)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.calls[0].body), &sent))
	assert.Equal(t, float64(2360), sent["total"])
}

func TestSubmit_PageHTMLConservee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html><body>Portail DGI</body></html>"))
	}))
	defer srv.Close()

	payload := &domain.NormalizedPayload{Type: "FV", Total: 2360}
	_, err := newClient().Submit(context.Background(), creds(srv.URL), payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHTTP)

	var tagged *domain.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, http.StatusBadGateway, tagged.HTTPStatus)
	assert.Equal(t, "submit", tagged.Action)
	assert.Contains(t, tagged.RawBody, "Portail DGI")
	assert.Same(t, payload, tagged.Payload)
	assert.NotContains(t, err.Error(), token)
}

func TestSubmit_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := emecef.NewClient(50*time.Millisecond, logger.Nop())
	payload := &domain.NormalizedPayload{Type: "FV"}
	_, err := c.Submit(context.Background(), creds(srv.URL), payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))

	var tagged *domain.Error
	require.True(t, errors.As(err, &tagged))
	assert.Same(t, payload, tagged.Payload)
}

func TestStatus_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := newClient().Status(context.Background(), creds(base))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, domain.KindTransport, domain.KindOf(err))
}

func TestStatus_IdentiteVendeur(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status":true,"version":"1.0","ifu":"3202300000001","nim":"TS01000001","tokenValid":"2025-01-01T00:00:00+01:00"}`))
	}))
	defer srv.Close()

	resp, err := newClient().Status(context.Background(), creds(srv.URL+"/emcf"))
	require.NoError(t, err)
	info := domain.VendorInfoFrom(resp)
	require.NotNil(t, info)
	assert.Equal(t, "TS01000001", info.Nim)
}

func TestGetInvoice(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`{"uid":"U-1","total":2360}`))
	}))
	defer srv.Close()

	resp, err := newClient().GetInvoice(context.Background(), creds(srv.URL), "U-1")
	require.NoError(t, err)
	assert.Equal(t, json.Number("2360"), resp["total"])
	assert.Equal(t, "/api/invoice/U-1", rec.calls[0].path)
}

// ── Finalisation ──

func TestFinalize_RepliPutPuisFrancais(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/invoice/U-1/confirm":
			w.WriteHeader(http.StatusMethodNotAllowed)
		case r.Method == http.MethodPut && r.URL.Path == "/api/invoice/U-1/confirm":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/api/invoice/U-1/confirmer":
			_, _ = w.Write([]byte(`{"codeMECeFDGI":"CODE-1","qrCode":"QR","counters":"1/1 FV"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	resp, err := newClient().Finalize(context.Background(), creds(srv.URL), "U-1", domain.ActionConfirm)
	require.NoError(t, err)
	cert, err := domain.ParseConfirmation(resp)
	require.NoError(t, err)
	assert.Equal(t, "CODE-1", cert.CodeMECeFDGI)

	require.Len(t, rec.calls, 3)
	assert.Equal(t, http.MethodPut, rec.calls[1].method)
	assert.Equal(t, "/api/invoice/U-1/confirmer", rec.calls[2].path)
}

func TestFinalize_PremierSuccesSansRepli(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer srv.Close()

	_, err := newClient().Finalize(context.Background(), creds(srv.URL), "U-1", domain.ActionCancel)
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "/api/invoice/U-1/cancel", rec.calls[0].path)
}

func TestFinalize_ErreurServeurSansRepli(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errorCode":"99","errorDesc":"panne"}`))
	}))
	defer srv.Close()

	_, err := newClient().Finalize(context.Background(), creds(srv.URL), "U-1", domain.ActionConfirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHTTP)
	assert.Len(t, rec.calls, 1)

	var tagged *domain.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, "confirm", tagged.Action)
	assert.Equal(t, "panne", tagged.Body.(domain.Response)["errorDesc"])
}

func TestFinalize_TousLesCandidatsEchouent(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient().Finalize(context.Background(), creds(srv.URL), "U-1", domain.ActionCancel)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHTTP)
	assert.Len(t, rec.calls, 3)
}
