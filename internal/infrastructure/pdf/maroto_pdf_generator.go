// Package pdf génère la facture normalisée imprimable (format A4) d'une vente
// certifiée par le e-MECeF.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EN-TÊTE : Vendeur + IFU       │  N° facture + date          │
//	│  CLIENT : nom, IFU, adresse                                  │
//	│  TABLEAU : Désignation | Qté | P.U. HT | Gr. | TVA | Montant │
//	│  TOTAUX : HT / TVA / AIB / TOTAL TTC                         │
//	│  PIED e-MECeF : code MECeF/DGI, NIM, compteurs, QR           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

var _ billing.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Palette ──────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 110, Green: 20, Blue: 40}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoPDFGenerator implémente billing.InvoicePDFGenerator avec Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construit le générateur.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF rend la facture et retourne les octets du PDF.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, inv *entity.Invoice, seller billing.Seller) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Facture normalisée "+inv.Number, true).
		WithAuthor(seller.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv, seller))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(inv.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(emecefFooterRows(inv)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: générer le document: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Sections ─────────────────────────────────────────────────────────────────

func headerRow(inv *entity.Invoice, seller billing.Seller) core.Row {
	title := "FACTURE DE VENTE"
	if emecef.IsCreditNote(inv.Type) {
		title = "FACTURE D'AVOIR"
	}
	date := inv.CreatedAt.Format("02/01/2006 15:04")
	if inv.EmcfDateTime != "" {
		date = inv.EmcfDateTime
	}

	return row.New(22).Add(
		col.New(7).Add(
			text.New(seller.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("IFU : "+nonEmpty(seller.IFU, "-"), props.Text{Size: 9, Top: 9, Color: colorGray}),
			text.New(nonEmpty(seller.Address, "")+"  "+nonEmpty(seller.Contact, ""), props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(inv.Number, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Date : "+date, props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func customerRow(inv *entity.Invoice) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENT", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(inv.CustomerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("IFU : "+nonEmpty(inv.CustomerIFU, "-"), props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Désignation", 4, align.Left),
		h("Qté", 1, align.Center),
		h("P.U. HT", 2, align.Right),
		h("Gr.", 1, align.Center),
		h("TVA", 2, align.Right),
		h("Montant HT", 2, align.Right),
	)
}

func itemRows(items []entity.SaleItem) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(4).Add(text.New(it.Name, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(FormatFCFA(it.UnitPrice.Round(0).IntPart()), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(it.TaxGroup, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(FormatFCFA(it.VatAmount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(FormatFCFA(it.TotalAmount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 18}

	labels := col.New(3).Add(
		label("Total HT :", 0), label("TVA :", 6), label("AIB :", 12),
		text.New("TOTAL TTC :", grand),
	)
	values := col.New(3).Add(
		value(FormatFCFA(inv.Subtotal), 0), value(FormatFCFA(inv.VatTotal), 6), value(FormatFCFA(inv.AibAmount), 12),
		text.New(FormatFCFA(inv.Total), grand),
	)

	return row.New(26).Add(col.New(6), labels, values)
}

func emecefFooterRows(inv *entity.Invoice) []core.Row {
	info := fmt.Sprintf("Code MECeF/DGI : %s\nNIM : %s   Compteurs : %s\nDate MECeF : %s",
		inv.EmcfCodeMECeFDGI,
		nonEmpty(inv.EmcfNim, "-"),
		nonEmpty(inv.EmcfCounters, "-"),
		nonEmpty(inv.EmcfDateTime, "-"),
	)
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("ÉLÉMENTS DE SÉCURITÉ DE LA FACTURE NORMALISÉE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	if inv.EmcfQrCode != "" {
		rows = append(rows, row.New(40).Add(
			col.New(3).Add(code.NewQr(inv.EmcfQrCode, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(text.New(info, props.Text{Size: 8, Top: 4, Left: 3})),
		))
	} else {
		rows = append(rows, row.New(16).Add(col.New(12).Add(text.New(info, props.Text{Size: 8, Top: 2}))))
	}
	return rows
}

// ── helpers ──────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// FormatFCFA formate un montant entier avec des espaces de milliers.
// Ex : 25900 → "25 900 FCFA".
func FormatFCFA(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	buf := make([]byte, 0, len(s)+len(s)/3+1)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c)
	}
	out := string(buf) + " FCFA"
	if neg {
		out = "-" + out
	}
	return out
}
