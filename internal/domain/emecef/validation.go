package emecef

import (
	"github.com/shopspring/decimal"

	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

// Validate contrôle une requête de facture avant toute normalisation.
// Retourne la première violation rencontrée, étiquetée par son code.
func Validate(raw any) error {
	m, ok := raw.(map[string]any)
	if !ok || m == nil {
		return Newf(ErrInvalidPayload, "la requête doit être un objet JSON")
	}
	return ValidateRequest(Canonicalize(m))
}

// ValidateRequest applique les règles sur une requête déjà canonicalisée.
func ValidateRequest(req *InvoiceRequest) error {
	if emecef.IsCreditNote(emecef.NormalizeInvoiceType(req.Type)) && !req.HasCreditNoteReference() {
		return Newf(ErrCreditNoteReferenceMissing,
			"un avoir doit référencer la facture d'origine (originalInvoiceReference, reference ou originalInvoiceUid)")
	}

	if req.Customer == nil {
		return Newf(ErrCustomerMissing, "customer ou client doit être fourni")
	}

	if !req.ItemsIsArray || len(req.ParsedItems) == 0 {
		return Newf(ErrItemsMissing, "items doit être une liste non vide")
	}

	gross := decimal.Zero
	for i, it := range req.ParsedItems {
		g, ok := emecef.ParseTaxGroup(it.TaxGroup)
		if !ok {
			return Newf(ErrItemTaxGroupInvalid,
				"article %d%s : groupe de taxation %q invalide (A, B, C, D, E ou EXPORT)",
				i, itemLabel(it), it.TaxGroup)
		}
		if !it.Quantity.Valid || !it.Quantity.Value.IsPositive() {
			return Newf(ErrItemQuantityInvalid, "article %d%s : la quantité doit être un nombre > 0", i, itemLabel(it))
		}
		if !it.UnitPrice.Valid || it.UnitPrice.Value.IsNegative() {
			return Newf(ErrItemPriceInvalid, "article %d%s : le prix unitaire doit être un nombre ≥ 0", i, itemLabel(it))
		}
		gross = gross.Add(emecef.LineGross(it.Quantity.Value, it.UnitPrice.Value, g))
		if !emecef.WithinMaxAmount(gross) {
			code := ErrItemPriceInvalid
			if it.Quantity.Value.GreaterThan(emecef.MaxAmount) {
				code = ErrItemQuantityInvalid
			}
			return Newf(code, "article %d%s : montant hors borne (total TTC limité à %s FCFA)",
				i, itemLabel(it), emecef.MaxAmount.String())
		}
	}

	if req.AibRate.Present {
		rate := req.AibRate.Value
		if _, ok := emecef.AibRateFromDecimal(rate); !req.AibRate.Valid || !ok {
			return Newf(ErrAibRateInvalid, "taux AIB %s non autorisé (0, 1 ou 5)", rate.String())
		}
	}

	if req.PaymentPresent && !req.PaymentIsArray {
		return Newf(ErrPaymentInvalid, "payment doit être une liste")
	}
	for i, pay := range req.Payment {
		if pay.Amount.Valid && pay.Amount.Value.Abs().GreaterThan(emecef.MaxAmount) {
			return Newf(ErrPaymentInvalid, "paiement %d : montant hors borne", i)
		}
	}
	return nil
}

func itemLabel(it ItemRequest) string {
	if it.Name == "" {
		return ""
	}
	return " (" + it.Name + ")"
}
