package emecef

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Alias des champs de la requête applicative, par ordre de priorité.
// Les postes de vente ont utilisé plusieurs conventions de nommage au fil
// des versions ; c'est ici, et uniquement ici, que ces variantes sont lues.
var (
	typeKeys        = []string{"type", "invoiceType", "invoice_type"}
	customerKeys    = []string{"customer", "client"}
	itemsKeys       = []string{"items", "articles", "lines"}
	aibKeys         = []string{"aibRate", "aib_rate", "aib"}
	paymentKeys     = []string{"payment", "paymentMethods", "payment_methods"}
	origRefKeys     = []string{"originalInvoiceReference", "original_invoice_reference"}
	referenceKeys   = []string{"reference"}
	origUIDKeys     = []string{"originalInvoiceUid", "original_invoice_uid"}
	dateTimeKeys    = []string{"dateTime", "date_time"}
	nimKeys         = []string{"nim"}
	ifuVendeurKeys  = []string{"ifuVendeur", "ifu_vendeur"}
	computedKeys    = []string{"aibAmount", "subtotal", "total"}
	custIFUKeys     = []string{"ifu", "IFU", "taxId", "tax_id"}
	custNameKeys    = []string{"name", "nom"}
	custAddressKeys = []string{"address", "adresse"}
	custContactKeys = []string{"contact", "phone", "telephone"}
	itemNameKeys    = []string{"name", "nom", "designation"}
	itemQtyKeys     = []string{"quantity", "qty", "quantite"}
	itemPriceKeys   = []string{"unitPrice", "unit_price", "price", "prix"}
	itemTaxKeys     = []string{"taxGroup", "tax_group", "taxgroup", "groupeTaxe"}
	itemProductKeys = []string{"productId", "product_id"}
	payNameKeys     = []string{"name", "method", "mode"}
	payAmountKeys   = []string{"amount", "montant"}
)

var knownKeys = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range [][]string{
		typeKeys, customerKeys, itemsKeys, aibKeys, paymentKeys,
		origRefKeys, referenceKeys, origUIDKeys, dateTimeKeys,
		nimKeys, ifuVendeurKeys, computedKeys,
	} {
		for _, k := range group {
			set[k] = struct{}{}
		}
	}
	return set
}()

// NumberField valeur numérique brute : Valid est faux si la clé est absente,
// non numérique ou non finie.
type NumberField struct {
	Value   decimal.Decimal
	Valid   bool
	Present bool
}

// CustomerRequest client tel que fourni (customer ou client).
type CustomerRequest struct {
	IFU     string
	Name    string
	Address string
	Contact string
}

// ItemRequest ligne brute avant passage au calculateur.
type ItemRequest struct {
	Name      string
	Quantity  NumberField
	UnitPrice NumberField
	TaxGroup  string // brut, vide si absent
	ProductID string
}

// PaymentRequest ligne de paiement brute.
type PaymentRequest struct {
	Name   string
	Amount NumberField
}

// InvoiceRequest forme canonique d'une requête de facture, quelle que soit
// la convention de nommage d'origine.
type InvoiceRequest struct {
	Type string // brut, non normalisé

	Customer        *CustomerRequest // nil si ni customer ni client n'est un objet
	CustomerPresent bool             // une clé customer/client non nulle existe

	Items        []any // éléments bruts, pour la validation structurelle
	ItemsIsArray bool
	ParsedItems  []ItemRequest

	AibRate NumberField

	Payment        []PaymentRequest
	PaymentPresent bool
	PaymentIsArray bool

	OriginalInvoiceReference string
	Reference                string
	OriginalInvoiceUID       string

	DateTime   string
	Nim        string
	IfuVendeur string

	// Extra champs non reconnus, transmis tels quels à l'API fiscale.
	Extra map[string]any
}

// HasCreditNoteReference indique qu'au moins une référence d'origine est fournie.
func (r *InvoiceRequest) HasCreditNoteReference() bool {
	return r.OriginalInvoiceReference != "" || r.Reference != "" || r.OriginalInvoiceUID != ""
}

// Canonicalize lit raw selon les priorités d'alias ci-dessus.
func Canonicalize(raw map[string]any) *InvoiceRequest {
	req := &InvoiceRequest{Extra: make(map[string]any)}
	if raw == nil {
		return req
	}

	req.Type = stringField(raw, typeKeys)

	for _, k := range customerKeys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		req.CustomerPresent = true
		if m, isMap := v.(map[string]any); isMap {
			req.Customer = &CustomerRequest{
				IFU:     stringField(m, custIFUKeys),
				Name:    stringField(m, custNameKeys),
				Address: stringField(m, custAddressKeys),
				Contact: stringField(m, custContactKeys),
			}
			break
		}
	}

	if v, ok := lookup(raw, itemsKeys); ok {
		if arr, isArr := v.([]any); isArr {
			req.ItemsIsArray = true
			req.Items = arr
			req.ParsedItems = make([]ItemRequest, 0, len(arr))
			for _, it := range arr {
				m, _ := it.(map[string]any)
				req.ParsedItems = append(req.ParsedItems, ItemRequest{
					Name:      stringField(m, itemNameKeys),
					Quantity:  numberField(m, itemQtyKeys),
					UnitPrice: numberField(m, itemPriceKeys),
					TaxGroup:  stringField(m, itemTaxKeys),
					ProductID: stringField(m, itemProductKeys),
				})
			}
		}
	}

	req.AibRate = numberField(raw, aibKeys)

	if v, ok := lookup(raw, paymentKeys); ok {
		req.PaymentPresent = true
		if arr, isArr := v.([]any); isArr {
			req.PaymentIsArray = true
			for _, p := range arr {
				m, isMap := p.(map[string]any)
				if !isMap {
					continue
				}
				req.Payment = append(req.Payment, PaymentRequest{
					Name:   stringField(m, payNameKeys),
					Amount: numberField(m, payAmountKeys),
				})
			}
		}
	}

	req.OriginalInvoiceReference = stringField(raw, origRefKeys)
	req.Reference = stringField(raw, referenceKeys)
	req.OriginalInvoiceUID = stringField(raw, origUIDKeys)
	req.DateTime = stringField(raw, dateTimeKeys)
	req.Nim = stringField(raw, nimKeys)
	req.IfuVendeur = stringField(raw, ifuVendeurKeys)

	for k, v := range raw {
		if _, known := knownKeys[k]; known {
			continue
		}
		req.Extra[k] = v
	}
	return req
}

// lookup première clé présente et non nulle.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringField première valeur non vide, convertie en texte et rognée.
func stringField(m map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s := toString(v); s != "" {
			return s
		}
	}
	return ""
}

func numberField(m map[string]any, keys []string) NumberField {
	v, ok := lookup(m, keys)
	if !ok {
		return NumberField{}
	}
	d, valid := toDecimal(v)
	return NumberField{Value: d, Valid: valid, Present: true}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// toDecimal accepte les nombres JSON (json.Number ou float64), les entiers Go
// et les chaînes numériques envoyées par les formulaires.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return toDecimal(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case decimal.Decimal:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
