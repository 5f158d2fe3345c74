package emecef

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxAmount montant maximal (en francs) d'une facture : sous-total, TVA et
// AIB doivent tenir dans les entiers 64 bits du payload normalisé.
var MaxAmount = decimal.New(1, 15)

// VatRateForTaxGroup retourne le taux de TVA (en %) du groupe. Un code
// inconnu vaut 0 ; le validateur rejette ces codes en amont.
func VatRateForTaxGroup(g TaxGroup) int {
	return vatRates[g]
}

// CalculateLineVat calcule la TVA d'une ligne : arrondi(quantité × prix × taux / 100).
// L'arrondi se fait à l'unité monétaire, demi vers le haut (599,94 → 600 ; 499,95 → 500).
func CalculateLineVat(quantity, unitPrice decimal.Decimal, g TaxGroup) int64 {
	rate := decimal.NewFromInt(int64(VatRateForTaxGroup(g)))
	return roundUnit(quantity.Mul(unitPrice).Mul(rate).Div(hundred))
}

// LineTotal calcule le montant hors taxes d'une ligne : arrondi(quantité × prix).
func LineTotal(quantity, unitPrice decimal.Decimal) int64 {
	return roundUnit(quantity.Mul(unitPrice))
}

// LineGross montant TTC non arrondi d'une ligne : quantité × prix × (100 + taux) / 100.
func LineGross(quantity, unitPrice decimal.Decimal, g TaxGroup) decimal.Decimal {
	rate := decimal.NewFromInt(int64(100 + VatRateForTaxGroup(g)))
	return quantity.Mul(unitPrice).Mul(rate).Div(hundred)
}

// WithinMaxAmount indique si un total TTC cumulé, majoré de l'AIB maximal,
// reste sous MaxAmount.
func WithinMaxAmount(gross decimal.Decimal) bool {
	maxAib := decimal.NewFromInt(int64(100 + AibRates[len(AibRates)-1]))
	return gross.Mul(maxAib).Div(hundred).LessThanOrEqual(MaxAmount)
}

// CalculateAib calcule l'AIB sur le sous-total : arrondi(sous-total × taux / 100).
// L'appartenance du taux à {0, 1, 5} est contrôlée par le validateur.
func CalculateAib(subtotal int64, ratePercent int) int64 {
	return roundUnit(decimal.NewFromInt(subtotal).Mul(decimal.NewFromInt(int64(ratePercent))).Div(hundred))
}

// FloatToDecimal convertit un flottant ; NaN et ±Inf donnent 0.
func FloatToDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// roundUnit arrondit au franc le plus proche, demi vers le haut pour les
// montants positifs (decimal.Round arrondit demi loin de zéro).
func roundUnit(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
