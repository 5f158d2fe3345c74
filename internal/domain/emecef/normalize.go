package emecef

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

// DateFormat format d'horodatage attendu par le déploiement e-MECeF.
// Les deux formats ne sont pas interchangeables : un mauvais format fait
// rejeter la facture.
type DateFormat string

const (
	DateFormatISO DateFormat = "iso"
	DateFormatDGI DateFormat = "dgi"

	dgiLayout = "02/01/2006 15:04:05"
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ParseDateFormat retourne DateFormatDGI pour "dgi", DateFormatISO sinon.
func ParseDateFormat(s string) DateFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(DateFormatDGI)) {
		return DateFormatDGI
	}
	return DateFormatISO
}

// Format horodate t selon le format configuré.
func (f DateFormat) Format(t time.Time) string {
	if f == DateFormatDGI {
		return t.Format(dgiLayout)
	}
	return t.UTC().Format(isoLayout)
}

// Normalizer projette une requête validée vers le payload e-MECeF.
type Normalizer struct {
	DateFormat DateFormat
	Clock      func() time.Time
}

func NewNormalizer(format DateFormat, clock func() time.Time) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{DateFormat: format, Clock: clock}
}

// Normalize ne retourne jamais d'erreur : Validate doit avoir été appelé.
// Les valeurs malformées prennent une valeur par défaut.
func (n *Normalizer) Normalize(raw map[string]any, info *VendorInfo) *NormalizedPayload {
	return n.NormalizeRequest(Canonicalize(raw), info)
}

func (n *Normalizer) NormalizeRequest(req *InvoiceRequest, info *VendorInfo) *NormalizedPayload {
	p := &NormalizedPayload{
		Type:  emecef.NormalizeInvoiceType(req.Type),
		Extra: req.Extra,
	}

	var vat int64
	p.Items = make([]LineItem, 0, len(req.ParsedItems))
	for _, it := range req.ParsedItems {
		g, _ := emecef.ParseTaxGroup(it.TaxGroup)
		q, up := it.Quantity.Value, it.UnitPrice.Value
		if !it.Quantity.Valid {
			q = decimal.Zero
		}
		if !it.UnitPrice.Valid {
			up = decimal.Zero
		}
		line := LineItem{
			Name:        it.Name,
			Quantity:    q,
			UnitPrice:   up,
			TaxGroup:    g,
			VatAmount:   emecef.CalculateLineVat(q, up, g),
			TotalAmount: emecef.LineTotal(q, up),
			ProductID:   it.ProductID,
		}
		p.Subtotal += line.TotalAmount
		vat += line.VatAmount
		p.Items = append(p.Items, line)
	}

	if req.AibRate.Valid {
		p.AibRate, _ = emecef.AibRateFromDecimal(req.AibRate.Value)
	}
	p.AibAmount = emecef.CalculateAib(p.Subtotal, p.AibRate)
	p.Total = p.Subtotal + vat + p.AibAmount

	for _, pay := range req.Payment {
		amount := int64(0)
		if pay.Amount.Valid {
			amount = pay.Amount.Value.Round(0).IntPart()
		}
		p.Payment = append(p.Payment, Payment{Name: emecef.PaymentLabel(pay.Name), Amount: amount})
	}
	if len(p.Payment) == 0 {
		p.Payment = []Payment{{Name: emecef.PaymentEspeces, Amount: p.Total}}
	}

	p.Customer = Customer{Name: emecef.DefaultCustomerName}
	if c := req.Customer; c != nil {
		if c.Name != "" {
			p.Customer.Name = c.Name
		}
		p.Customer.IFU = optional(c.IFU)
		p.Customer.Address = optional(c.Address)
		p.Customer.Contact = optional(c.Contact)
	}

	switch {
	case info != nil && info.Nim != "" && info.Ifu != "":
		p.Nim, p.IfuVendeur = info.Nim, info.Ifu
	case req.Nim != "" && req.IfuVendeur != "":
		p.Nim, p.IfuVendeur = req.Nim, req.IfuVendeur
	}

	// Un horodatage déjà fourni est conservé : la projection reste répétable.
	p.DateTime = req.DateTime
	if p.DateTime == "" {
		p.DateTime = n.DateFormat.Format(n.Clock())
	}

	p.OriginalInvoiceReference = req.OriginalInvoiceReference
	p.Reference = req.Reference
	p.OriginalInvoiceUID = req.OriginalInvoiceUID
	if emecef.IsCreditNote(p.Type) && p.OriginalInvoiceReference == "" {
		p.OriginalInvoiceReference = firstNonEmpty(req.Reference, req.OriginalInvoiceUID)
	}
	return p
}

// DecodeObject décode un objet JSON en conservant les nombres en json.Number.
func DecodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
