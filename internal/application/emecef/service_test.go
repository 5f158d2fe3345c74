package emecef_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/internal/application/emecef"
	appdomain "github.com/cavebenin/emecef-pos/internal/domain"
	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/mocks"
	"github.com/cavebenin/emecef-pos/pkg/logger"
)

// ── Horloge contrôlée ──

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ── Montage ──

type fixture struct {
	clock  *fakeClock
	repo   *mocks.MockPointOfSaleRepo
	client *mocks.MockFiscalClient
	cipher *mocks.MockTokenCipher
	tx     *mocks.FakeSaleTxRunner
	svc    *emecef.Service
}

func newFixture(pos *entity.PointOfSale) *fixture {
	f := &fixture{
		clock:  newFakeClock(),
		repo:   new(mocks.MockPointOfSaleRepo),
		client: new(mocks.MockFiscalClient),
		cipher: new(mocks.MockTokenCipher),
		tx: &mocks.FakeSaleTxRunner{
			Sales:    new(mocks.MockSaleRepo),
			Invoices: new(mocks.MockInvoiceRepo),
			Products: new(mocks.MockProductRepo),
		},
	}
	if pos != nil {
		f.repo.On("GetActive", mock.Anything).Return(pos, nil).Maybe()
		f.repo.On("GetByID", mock.Anything, pos.ID).Return(pos, nil).Maybe()
	} else {
		f.repo.On("GetActive", mock.Anything).Return(nil, nil).Maybe()
	}

	log := logger.Nop()
	resolver := emecef.NewCredentialResolver(f.repo, nil, emecef.EnvCredentials{}, log)
	f.svc = emecef.NewService(
		f.repo, resolver, f.client, f.cipher,
		emecef.NewIdentityCache(f.clock.Now),
		emecef.NewPendingStore(2*time.Minute, f.clock.Now),
		f.tx,
		emecef.Config{DateFormat: domain.DateFormatISO, InfoRefresh: 30 * time.Minute, SweepInterval: time.Second},
		log,
	)
	return f
}

func (f *fixture) expectStatus() {
	f.client.On("Status", mock.Anything, mock.Anything).
		Return(domain.Response{"status": true, "nim": "TS01000001", "ifu": "3202300000001"}, nil)
}

func (f *fixture) expectPersist(number int64) {
	f.tx.Invoices.On("NextNumber", mock.Anything, "FV", 2024).Return(number, nil)
	f.tx.Sales.On("Create", mock.Anything, mock.AnythingOfType("*entity.Sale")).Return(nil)
	f.tx.Sales.On("CreateItem", mock.Anything, mock.AnythingOfType("*entity.SaleItem")).Return(nil)
	f.tx.Products.On("DecrementStock", mock.Anything, "prod-1", mock.MatchedBy(func(q decimal.Decimal) bool {
		return q.Equal(decimal.NewFromInt(2))
	})).Return(nil)
}

func sampleInvoice() map[string]any {
	return map[string]any{
		"type":     "FV",
		"customer": map[string]any{"name": "A"},
		"items": []any{
			map[string]any{"productId": "prod-1", "name": "Wine", "quantity": 2, "unitPrice": 1000, "taxGroup": "B"},
		},
	}
}

func (f *fixture) submit(t *testing.T) *dto.SubmitInvoiceResponse {
	t.Helper()
	f.client.On("Submit", mock.Anything, mock.Anything, mock.AnythingOfType("*emecef.NormalizedPayload")).
		Return(domain.Response{"uid": "U1", "ta": 0, "tb": 18}, nil).Once()
	out, err := f.svc.SubmitInvoice(context.Background(), "", sampleInvoice(), "caissier-1")
	require.NoError(t, err)
	return out
}

var confirmResponse = domain.Response{
	"codeMECeFDGI": "TEST-ABCD-EFGH-1234",
	"qrCode":       "F;TS01000001;TESTABCDEFGH1234;3202300000001;20240315100100",
	"dateTime":     "15/03/2024 10:01:00",
	"counters":     "7/7 FV",
	"nim":          "TS01000001",
}

// ── Soumission ──

func TestSubmitInvoice_Succes(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()

	out := f.submit(t)

	assert.Equal(t, "U1", out.UID)
	assert.Equal(t, "pos-1", out.PosID)
	assert.Equal(t, f.clock.Now().Add(2*time.Minute).UnixMilli(), out.ExpiresAtMs)
	assert.Equal(t, int64(2360), out.Payload.Total)
	assert.Equal(t, "TS01000001", out.Payload.Nim)
	assert.Equal(t, "3202300000001", out.Payload.IfuVendeur)
	assert.Empty(t, out.Warnings)

	f.client.AssertCalled(t, "Submit", mock.Anything, mock.MatchedBy(func(c domain.Credentials) bool {
		return c.BaseURL == "https://db.example/emcf" && c.Token == "db-token"
	}), mock.Anything)
}

func TestSubmitInvoice_ValidationAvantToutAppel(t *testing.T) {
	f := newFixture(activePOS())
	raw := sampleInvoice()
	raw["aibRate"] = 2

	_, err := f.svc.SubmitInvoice(context.Background(), "", raw, "caissier-1")
	assert.ErrorIs(t, err, domain.ErrAibRateInvalid)
	f.client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	f.client.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
}

func TestSubmitInvoice_NonConfigure(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.SubmitInvoice(context.Background(), "", sampleInvoice(), "caissier-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	f.client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInvoice_JetonManquant(t *testing.T) {
	pos := activePOS()
	pos.Token = ""
	f := newFixture(pos)

	_, err := f.svc.SubmitInvoice(context.Background(), "", sampleInvoice(), "caissier-1")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSubmitInvoice_ReponseSansUID(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(domain.Response{"status": "ok"}, nil)

	_, err := f.svc.SubmitInvoice(context.Background(), "", sampleInvoice(), "caissier-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)

	var tagged *domain.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, "submit", tagged.Action)
	assert.NotContains(t, err.Error(), "db-token")
}

func TestSubmitInvoice_StatusIndisponibleNonBloquant(t *testing.T) {
	f := newFixture(activePOS())
	f.client.On("Status", mock.Anything, mock.Anything).Return(nil, domain.Newf(domain.ErrTimeout, "délai dépassé"))

	out := f.submit(t)
	assert.Empty(t, out.Payload.Nim)
}

func TestSubmitInvoice_IdentiteEnCache(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()

	_, err := f.svc.Status(context.Background(), "")
	require.NoError(t, err)
	f.submit(t)

	f.client.AssertNumberOfCalls(t, "Status", 1)
}

func TestSubmitInvoice_EcartPaiement(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(domain.Response{"uid": "U2"}, nil)
	raw := sampleInvoice()
	raw["payment"] = []any{map[string]any{"name": "MOBILEMONEY", "amount": 2000}}

	out, err := f.svc.SubmitInvoice(context.Background(), "", raw, "caissier-1")
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, domain.WarningPaymentMismatch, out.Warnings[0].Code)
}

// ── Confirmation ──

func TestConfirmInvoice_EnregistreFactureImmuable(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.expectPersist(7)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).Return(confirmResponse, nil)
	f.tx.Invoices.On("Create", mock.Anything, mock.MatchedBy(func(inv *entity.Invoice) bool {
		return inv.ImmutableFlag &&
			inv.Number == "FV-2024-000007" &&
			inv.EmcfUID == "U1" &&
			inv.EmcfCodeMECeFDGI == "TEST-ABCD-EFGH-1234" &&
			inv.EmcfCounters == "7/7 FV" &&
			inv.EmcfPosID == "pos-1" &&
			inv.Total == 2360 &&
			inv.EmcfConfirmedAt != nil
	})).Return(nil)

	f.clock.Advance(time.Minute)
	out, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	require.NoError(t, err)

	assert.Equal(t, "CONFIRMED", out.State)
	assert.Equal(t, "FV-2024-000007", out.InvoiceNumber)
	assert.Equal(t, "TEST-ABCD-EFGH-1234", out.CodeMECeFDGI)
	f.tx.Products.AssertExpectations(t)
	f.tx.Invoices.AssertExpectations(t)

	_, err = f.svc.PendingStatus("U1")
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestConfirmInvoice_SansCodeMECeFAucuneVente(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).
		Return(domain.Response{"qrCode": "x"}, nil)

	_, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfirmationWithoutCode)
	assert.Equal(t, 0, f.tx.Calls)

	st, err := f.svc.PendingStatus("U1")
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", st.State)
}

func TestConfirmInvoice_ExpireeRejeteeSansAppelReseau(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)

	f.clock.Advance(2*time.Minute + time.Second)
	_, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionExpired)

	_, err = f.svc.CancelInvoice(context.Background(), "U1", "caissier-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionExpired)
	f.client.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	st, err := f.svc.PendingStatus("U1")
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", st.State)

	assert.Equal(t, 1, f.svc.SweepExpired())
	_, err = f.svc.CancelInvoice(context.Background(), "U1", "caissier-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestConfirmInvoice_ErreurReseauGardeLaSoumission(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).
		Return(nil, domain.Newf(domain.ErrTimeout, "délai dépassé")).Once()

	_, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	assert.ErrorIs(t, err, domain.ErrTimeout)

	st, err := f.svc.PendingStatus("U1")
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", st.State)
	assert.Equal(t, int64(120), st.RemainingSeconds)
}

func TestConfirmInvoice_ReessaiEnregistrementSansRappelDGI(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).Return(confirmResponse, nil).Once()

	f.tx.Err = errors.New("connexion base perdue")
	_, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	require.Error(t, err)

	st, err := f.svc.PendingStatus("U1")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", st.State)

	f.tx.Err = nil
	f.expectPersist(8)
	f.tx.Invoices.On("Create", mock.Anything, mock.AnythingOfType("*entity.Invoice")).Return(nil)
	f.clock.Advance(5 * time.Minute)

	out, err := f.svc.ConfirmInvoice(context.Background(), "U1", "")
	require.NoError(t, err)
	assert.Equal(t, "FV-2024-000008", out.InvoiceNumber)
	f.client.AssertNumberOfCalls(t, "Finalize", 1)
}

func TestConfirmInvoice_StockInsuffisantEnregistreQuandMeme(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).Return(confirmResponse, nil).Once()
	f.tx.Invoices.On("NextNumber", mock.Anything, "FV", 2024).Return(int64(3), nil)
	f.tx.Sales.On("Create", mock.Anything, mock.AnythingOfType("*entity.Sale")).Return(nil)
	f.tx.Sales.On("CreateItem", mock.Anything, mock.AnythingOfType("*entity.SaleItem")).Return(nil)
	f.tx.Products.On("DecrementStock", mock.Anything, "prod-1", mock.Anything).
		Return(fmt.Errorf("%w: produit prod-1", appdomain.ErrInsufficientStock))
	f.tx.Invoices.On("Create", mock.Anything, mock.AnythingOfType("*entity.Invoice")).Return(nil)

	out, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	require.NoError(t, err)
	assert.Equal(t, "FV-2024-000003", out.InvoiceNumber)
	f.tx.Invoices.AssertCalled(t, "Create", mock.Anything, mock.AnythingOfType("*entity.Invoice"))

	_, err = f.svc.PendingStatus("U1")
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestSweepExpired_AbandonneLesCertifieesNonEnregistrees(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionConfirm).Return(confirmResponse, nil).Once()
	f.tx.Err = errors.New("connexion base perdue")

	_, err := f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	require.Error(t, err)

	f.clock.Advance(30 * time.Minute)
	assert.Equal(t, 0, f.svc.SweepExpired())
	st, err := f.svc.PendingStatus("U1")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", st.State)

	f.clock.Advance(emecef.DefaultConfirmedRetention)
	assert.Equal(t, 1, f.svc.SweepExpired())
	_, err = f.svc.PendingStatus("U1")
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
	f.client.AssertNumberOfCalls(t, "Finalize", 1)
}

// ── Annulation ──

func TestCancelInvoice_AucuneVente(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)
	f.client.On("Finalize", mock.Anything, mock.Anything, "U1", domain.ActionCancel).
		Return(domain.Response{"status": true}, nil)

	out, err := f.svc.CancelInvoice(context.Background(), "U1", "caissier-1")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.State)
	assert.Equal(t, 0, f.tx.Calls)

	_, err = f.svc.ConfirmInvoice(context.Background(), "U1", "caissier-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestFinalizeInvoice_ActionInvalide(t *testing.T) {
	f := newFixture(activePOS())
	_, err := f.svc.FinalizeInvoice(context.Background(), "U1", domain.FinalizeAction("valider"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

// ── Expiration ──

func TestSweepExpired(t *testing.T) {
	f := newFixture(activePOS())
	f.expectStatus()
	f.submit(t)

	assert.Equal(t, 0, f.svc.SweepExpired())
	f.clock.Advance(3 * time.Minute)
	assert.Equal(t, 1, f.svc.SweepExpired())
	f.client.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunExpirySweeper_ArretSurAnnulation(t *testing.T) {
	f := newFixture(activePOS())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunExpirySweeper(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunExpirySweeper did not return after context cancellation")
	}
}

// ── Points de vente ──

func TestUpsertPointOfSale_ChiffreLeJeton(t *testing.T) {
	f := newFixture(nil)
	f.cipher.On("Encrypt", "secret").Return("v1:xyz", nil)
	f.repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *entity.PointOfSale) bool {
		return p.Token == "v1:xyz" && p.TokenEncrypted && p.ID != ""
	})).Return(nil)
	f.repo.On("SetActive", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	token := "Bearer secret"
	out, err := f.svc.UpsertPointOfSale(context.Background(), dto.UpsertPointOfSaleRequest{
		Name: "Cave Porto-Novo", BaseURL: "https://sygmef.impots.bj/emcf", Token: &token, IsActive: true,
	})
	require.NoError(t, err)
	assert.True(t, out.HasToken)
	assert.True(t, out.TokenEncrypted)
	assert.True(t, out.IsActive)
}

func TestUpsertPointOfSale_ChampsRequis(t *testing.T) {
	f := newFixture(nil)
	_, err := f.svc.UpsertPointOfSale(context.Background(), dto.UpsertPointOfSaleRequest{Name: "Sans URL"})
	assert.Error(t, err)
	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestListPointsOfSale_MasqueLesJetons(t *testing.T) {
	f := newFixture(nil)
	f.repo.On("List", mock.Anything).Return([]*entity.PointOfSale{activePOS()}, nil)

	list, err := f.svc.ListPointsOfSale(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].HasToken)
	assert.False(t, list[0].TokenEncrypted)
}
