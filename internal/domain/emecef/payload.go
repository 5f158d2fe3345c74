package emecef

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

// Customer client canonique. Les champs absents sont émis à null.
type Customer struct {
	IFU     *string `json:"ifu"`
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
}

// LineItem ligne de facture après passage au calculateur de taxes.
type LineItem struct {
	Name        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxGroup    emecef.TaxGroup
	VatAmount   int64
	TotalAmount int64
	// ProductID sert au décrément de stock local ; non transmis à la DGI.
	ProductID string
}

// MarshalJSON émet quantité et prix en nombres JSON, sans guillemets.
func (l LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string          `json:"name"`
		Quantity    json.Number     `json:"quantity"`
		UnitPrice   json.Number     `json:"unitPrice"`
		TaxGroup    emecef.TaxGroup `json:"taxGroup"`
		VatAmount   int64           `json:"vatAmount"`
		TotalAmount int64           `json:"totalAmount"`
	}{
		Name:        l.Name,
		Quantity:    json.Number(l.Quantity.String()),
		UnitPrice:   json.Number(l.UnitPrice.String()),
		TaxGroup:    l.TaxGroup,
		VatAmount:   l.VatAmount,
		TotalAmount: l.TotalAmount,
	})
}

// Payment ligne de paiement.
type Payment struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// VendorInfo identité du vendeur apprise via /status.
type VendorInfo struct {
	Nim string
	Ifu string
}

// NormalizedPayload objet de soumission e-MECeF. Immuable une fois soumis.
type NormalizedPayload struct {
	Nim        string
	IfuVendeur string
	DateTime   string
	Type       string
	Customer   Customer
	Items      []LineItem
	Payment    []Payment
	AibRate    int
	AibAmount  int64
	Subtotal   int64
	Total      int64

	OriginalInvoiceReference string
	Reference                string
	OriginalInvoiceUID       string

	// Extra champs de l'appelant non reconnus, émis sous les champs calculés.
	Extra map[string]any
}

// VatTotal somme des TVA des lignes.
func (p *NormalizedPayload) VatTotal() int64 {
	var sum int64
	for _, it := range p.Items {
		sum += it.VatAmount
	}
	return sum
}

// PaymentDelta Σ paiements − total. Un écart non nul est signalé
// (PAIEMENT_ECART) sans bloquer la soumission.
func (p *NormalizedPayload) PaymentDelta() int64 {
	var sum int64
	for _, pay := range p.Payment {
		sum += pay.Amount
	}
	return sum - p.Total
}

// MarshalJSON fusionne Extra puis écrase avec les champs calculés.
func (p *NormalizedPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+16)
	for k, v := range p.Extra {
		out[k] = v
	}
	items := p.Items
	if items == nil {
		items = []LineItem{}
	}
	payment := p.Payment
	if payment == nil {
		payment = []Payment{}
	}

	if p.Nim != "" && p.IfuVendeur != "" {
		out["nim"] = p.Nim
		out["ifuVendeur"] = p.IfuVendeur
	}
	out["dateTime"] = p.DateTime
	out["type"] = p.Type
	out["customer"] = p.Customer
	out["items"] = items
	out["payment"] = payment
	out["aibRate"] = p.AibRate
	out["aibAmount"] = p.AibAmount
	out["subtotal"] = p.Subtotal
	out["total"] = p.Total
	if p.OriginalInvoiceReference != "" {
		out["originalInvoiceReference"] = p.OriginalInvoiceReference
	}
	if p.Reference != "" {
		out["reference"] = p.Reference
	}
	if p.OriginalInvoiceUID != "" {
		out["originalInvoiceUid"] = p.OriginalInvoiceUID
	}
	return json.Marshal(out)
}

// ToMap projection générique du payload, telle qu'émise en JSON.
func (p *NormalizedPayload) ToMap() (map[string]any, error) {
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return DecodeObject(b)
}
