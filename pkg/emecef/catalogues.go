// Package emecef contient les catalogues et les règles de calcul fiscal du
// dispositif e-MECeF de la DGI (Bénin) : groupes de taxation, TVA, AIB,
// types de facture et libellés de paiement.
package emecef

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// Groupes de taxation e-MECeF
// Chaque ligne de facture porte exactement un groupe ; le taux de TVA en découle.
// =============================================================================

// TaxGroup groupe de taxation d'une ligne de facture.
type TaxGroup string

const (
	TaxGroupA      TaxGroup = "A"      // Exonéré
	TaxGroupB      TaxGroup = "B"      // Taxable 18 %
	TaxGroupC      TaxGroup = "C"      // Taxable 10 %
	TaxGroupD      TaxGroup = "D"      // Taxable 5 %
	TaxGroupE      TaxGroup = "E"      // Régime TPS
	TaxGroupExport TaxGroup = "EXPORT" // Exportation
)

// vatRates taux de TVA (en pourcentage) par groupe de taxation.
var vatRates = map[TaxGroup]int{
	TaxGroupA:      0,
	TaxGroupB:      18,
	TaxGroupC:      10,
	TaxGroupD:      5,
	TaxGroupE:      0,
	TaxGroupExport: 0,
}

// TaxGroups liste ordonnée des groupes acceptés (messages d'erreur, UI).
var TaxGroups = []TaxGroup{TaxGroupA, TaxGroupB, TaxGroupC, TaxGroupD, TaxGroupE, TaxGroupExport}

// ParseTaxGroup normalise un code (espaces, casse) et indique s'il appartient
// à l'ensemble fermé des groupes e-MECeF. Aucun groupe n'est déduit par défaut.
func ParseTaxGroup(s string) (TaxGroup, bool) {
	g := TaxGroup(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := vatRates[g]
	return g, ok
}

// =============================================================================
// AIB (acompte sur impôt assis sur les bénéfices)
// =============================================================================

// AibRates taux AIB autorisés, en pourcentage du sous-total hors taxes.
var AibRates = []int{0, 1, 5}

// IsAllowedAibRate indique si rate appartient à l'ensemble {0, 1, 5}.
func IsAllowedAibRate(rate int) bool {
	for _, r := range AibRates {
		if r == rate {
			return true
		}
	}
	return false
}

// AibRateFromDecimal retourne le taux autorisé égal à d, comparé en décimal
// sans conversion entière.
func AibRateFromDecimal(d decimal.Decimal) (int, bool) {
	for _, r := range AibRates {
		if d.Equal(decimal.NewFromInt(int64(r))) {
			return r, true
		}
	}
	return 0, false
}

// =============================================================================
// Types de facture
// =============================================================================

const (
	InvoiceTypeSale       = "FV" // Facture de vente
	InvoiceTypeCreditNote = "AV" // Facture d'avoir
	InvoiceTypeExportSale = "EV" // Facture de vente à l'exportation
)

// NormalizeInvoiceType retourne le type en majuscules, "FV" si vide.
func NormalizeInvoiceType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return InvoiceTypeSale
	}
	return t
}

// IsCreditNote indique si le type appartient à la famille des avoirs.
// Une facture d'avoir doit référencer la facture d'origine.
func IsCreditNote(t string) bool {
	return strings.Contains(NormalizeInvoiceType(t), InvoiceTypeCreditNote)
}

// =============================================================================
// Modes de paiement
// =============================================================================

const (
	PaymentEspeces     = "ESPECES"
	PaymentVirement    = "VIREMENT"
	PaymentCarte       = "CARTEBANCAIRE"
	PaymentMobileMoney = "MOBILEMONEY"
	PaymentCheques     = "CHEQUES"
	PaymentCredit      = "CREDIT"
	PaymentAutre       = "AUTRE"
)

// DefaultCustomerName nom utilisé quand la vente n'identifie pas le client.
const DefaultCustomerName = "Client non spécifié"

// PaymentLabel canonise un libellé de mode de paiement : suppression des
// accents, majuscules. "Espèces" devient "ESPECES" ; vide donne ESPECES.
func PaymentLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return PaymentEspeces
	}
	// Transformer et Caser gardent un état : une instance par appel.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Upper(language.Und).String(stripped)
}
