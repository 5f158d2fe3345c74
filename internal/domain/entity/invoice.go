package entity

import (
	"encoding/json"
	"time"
)

// Statuts e-MECeF d'une facture locale.
const (
	EmcfStatusConfirmed = "CONFIRMED"
	EmcfStatusNone      = "" // facture non certifiée (import, saisie hors ligne)
)

// Invoice facture persistée. Une fois ImmutableFlag posé, elle n'est plus
// ni modifiable ni supprimable.
type Invoice struct {
	ID            string
	SaleID        string
	Number        string // FV-2024-000001
	Type          string // FV, AV, EV...
	CustomerName  string
	CustomerIFU   string
	Subtotal      int64
	VatTotal      int64
	AibAmount     int64
	Total         int64
	Notes         string
	ImmutableFlag bool

	EmcfUID          string
	EmcfStatus       string
	EmcfCodeMECeFDGI string
	EmcfQrCode       string
	EmcfDateTime     string
	EmcfCounters     string
	EmcfNim          string
	EmcfPosID        string
	EmcfRawResponse  json.RawMessage
	EmcfSubmittedAt  *time.Time
	EmcfConfirmedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []SaleItem // chargées à la demande (PDF, détail)
}

// IsCertified indique une facture confirmée par la DGI.
func (i *Invoice) IsCertified() bool {
	return i.EmcfCodeMECeFDGI != ""
}
