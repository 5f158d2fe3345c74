package emecef_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC)

func newNormalizer(format domain.DateFormat) *domain.Normalizer {
	return domain.NewNormalizer(format, func() time.Time { return fixedNow })
}

// ── Scénarios de bout en bout ──

func TestNormalize_Scenario1(t *testing.T) {
	p := newNormalizer(domain.DateFormatISO).Normalize(validPayload(), nil)

	assert.Equal(t, "FV", p.Type)
	assert.Equal(t, int64(2000), p.Subtotal)
	require.Len(t, p.Items, 1)
	assert.Equal(t, int64(360), p.Items[0].VatAmount)
	assert.Equal(t, int64(2000), p.Items[0].TotalAmount)
	assert.Equal(t, int64(2360), p.Total)
	assert.Equal(t, []domain.Payment{{Name: "ESPECES", Amount: 2360}}, p.Payment)
	assert.Equal(t, int64(0), p.PaymentDelta())
}

func TestNormalize_Scenario2_GroupesMixtesAvecAib(t *testing.T) {
	raw := map[string]any{
		"customer": map[string]any{"name": "Cave du Port"},
		"aibRate":  5,
		"items": []any{
			map[string]any{"name": "Bordeaux", "quantity": 10, "unitPrice": 1000, "taxGroup": "B"},
			map[string]any{"name": "Jus", "quantity": 10, "unitPrice": 1000, "taxGroup": "C"},
			map[string]any{"name": "Eau", "quantity": 2, "unitPrice": 1000, "taxGroup": "A"},
		},
	}
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)

	assert.Equal(t, int64(22000), p.Subtotal)
	assert.Equal(t, int64(2800), p.VatTotal())
	assert.Equal(t, int64(1100), p.AibAmount)
	assert.Equal(t, int64(25900), p.Total)
}

func TestNormalize_InvariantTotaux(t *testing.T) {
	raw := map[string]any{
		"customer": map[string]any{"name": "X"},
		"aib_rate": 1,
		"articles": []any{
			map[string]any{"designation": "Rosé", "qty": 3, "prix": 3333, "tax_group": "b"},
			map[string]any{"nom": "Liqueur", "quantite": "1.5", "unit_price": 333, "groupeTaxe": "C"},
			map[string]any{"name": "Export", "quantity": 7, "price": 9999, "taxGroup": "EXPORT"},
		},
	}
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)

	var sumLines, sumVat int64
	for _, it := range p.Items {
		sumLines += it.TotalAmount
		sumVat += it.VatAmount
	}
	assert.Equal(t, sumLines, p.Subtotal)
	assert.Equal(t, p.Subtotal+sumVat+p.AibAmount, p.Total)
	assert.Equal(t, emecef.TaxGroupB, p.Items[0].TaxGroup)
}

// ── Client ──

func TestNormalize_ClientRepli(t *testing.T) {
	raw := validPayload()
	delete(raw, "customer")
	raw["client"] = map[string]any{"name": "X", "telephone": "+229 97 00 00 00"}

	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)
	assert.Equal(t, "X", p.Customer.Name)
	require.NotNil(t, p.Customer.Contact)
	assert.Equal(t, "+229 97 00 00 00", *p.Customer.Contact)
	assert.Nil(t, p.Customer.IFU)
}

func TestNormalize_CustomerPrioritaireSurClient(t *testing.T) {
	raw := validPayload()
	raw["client"] = map[string]any{"name": "Y"}
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)
	assert.Equal(t, "A", p.Customer.Name)
}

func TestNormalize_NomClientParDefaut(t *testing.T) {
	raw := validPayload()
	raw["customer"] = map[string]any{"ifu": "3201900000000"}
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)
	assert.Equal(t, "Client non spécifié", p.Customer.Name)
	require.NotNil(t, p.Customer.IFU)
	assert.Equal(t, "3201900000000", *p.Customer.IFU)
}

// ── Paiement ──

func TestNormalize_PaiementExpliciteConserve(t *testing.T) {
	raw := validPayload()
	raw["paymentMethods"] = []any{
		map[string]any{"method": "Mobile Money", "montant": 2000},
		map[string]any{"name": "espèces", "amount": 300},
	}
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)

	assert.Equal(t, []domain.Payment{
		{Name: "MOBILE MONEY", Amount: 2000},
		{Name: "ESPECES", Amount: 300},
	}, p.Payment)
	assert.Equal(t, int64(-60), p.PaymentDelta())
}

// ── Identité vendeur et horodatage ──

func TestNormalize_IdentiteVendeur(t *testing.T) {
	n := newNormalizer(domain.DateFormatISO)

	p := n.Normalize(validPayload(), &domain.VendorInfo{Nim: "ED01000001", Ifu: "3202300000001"})
	assert.Equal(t, "ED01000001", p.Nim)
	assert.Equal(t, "3202300000001", p.IfuVendeur)

	p = n.Normalize(validPayload(), &domain.VendorInfo{Nim: "ED01000001"})
	m, err := p.ToMap()
	require.NoError(t, err)
	assert.NotContains(t, m, "nim")
	assert.NotContains(t, m, "ifuVendeur")
}

func TestNormalize_FormatsDate(t *testing.T) {
	p := newNormalizer(domain.DateFormatISO).Normalize(validPayload(), nil)
	assert.Equal(t, "2024-03-15T09:30:05.000Z", p.DateTime)

	p = newNormalizer(domain.DateFormatDGI).Normalize(validPayload(), nil)
	assert.Equal(t, "15/03/2024 09:30:05", p.DateTime)

	assert.Equal(t, domain.DateFormatDGI, domain.ParseDateFormat(" DGI "))
	assert.Equal(t, domain.DateFormatISO, domain.ParseDateFormat("autre"))
}

// ── Avoirs ──

func TestNormalize_AvoirReferencePremiereNonVide(t *testing.T) {
	raw := validPayload()
	raw["type"] = " av "
	raw["reference"] = "REF-9"
	raw["originalInvoiceUid"] = "uid-9"
	p := newNormalizer(domain.DateFormatISO).Normalize(raw, nil)

	assert.Equal(t, "AV", p.Type)
	assert.Equal(t, "REF-9", p.OriginalInvoiceReference)
	assert.Equal(t, "REF-9", p.Reference)
	assert.Equal(t, "uid-9", p.OriginalInvoiceUID)
}

// ── Projection JSON ──

func TestNormalize_ChampsInconnusTransmis(t *testing.T) {
	raw := validPayload()
	raw["operator"] = "Awa"
	raw["total"] = 1
	raw["client"] = map[string]any{"name": "ignoré"}

	m, err := newNormalizer(domain.DateFormatISO).Normalize(raw, nil).ToMap()
	require.NoError(t, err)
	assert.Equal(t, "Awa", m["operator"])
	assert.Equal(t, json.Number("2360"), m["total"])
	assert.NotContains(t, m, "client")

	items := m["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, json.Number("2"), first["quantity"])
	assert.NotContains(t, first, "ProductID")
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newNormalizer(domain.DateFormatDGI)
	raw := map[string]any{
		"type":      "AV",
		"reference": "FV-12",
		"client":    map[string]any{"nom": "Dossou", "adresse": "Cotonou"},
		"aib":       "1",
		"lines": []any{
			map[string]any{"name": "Vin", "quantity": 1.5, "unitPrice": 2999.5, "taxGroup": "d"},
		},
		"note": "livraison",
	}

	first, err := n.Normalize(raw, &domain.VendorInfo{Nim: "N1", Ifu: "I1"}).ToMap()
	require.NoError(t, err)

	second, err := n.Normalize(first, nil).ToMap()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
