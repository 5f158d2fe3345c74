package dto

import (
	"time"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

// UpsertPointOfSaleRequest body de POST /api/emcf/pos et PUT /api/emcf/pos/:id.
// Token nil conserve le jeton existant ; "" l'efface.
type UpsertPointOfSaleRequest struct {
	ID       string  `json:"-"`
	Name     string  `json:"name"`
	BaseURL  string  `json:"base_url"`
	Token    *string `json:"token,omitempty"`
	IsActive bool    `json:"is_active"`
}

// PointOfSaleResponse point de vente exposé à l'UI. Le jeton n'est jamais renvoyé.
type PointOfSaleResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	BaseURL        string    `json:"base_url"`
	HasToken       bool      `json:"has_token"`
	TokenEncrypted bool      `json:"token_encrypted"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Warning avertissement non bloquant renvoyé avec la soumission.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitInvoiceResponse résultat de POST /api/emcf/invoices.
type SubmitInvoiceResponse struct {
	UID         string                    `json:"uid"`
	PosID       string                    `json:"pos_id,omitempty"`
	SubmittedAt time.Time                 `json:"submitted_at"`
	ExpiresAt   time.Time                 `json:"expires_at"`
	ExpiresAtMs int64                     `json:"expires_at_ms"`
	Payload     *domain.NormalizedPayload `json:"payload"`
	Response    domain.Response           `json:"response"`
	Warnings    []Warning                 `json:"warnings,omitempty"`
}

// FinalizeInvoiceResponse résultat d'une confirmation ou d'une annulation.
type FinalizeInvoiceResponse struct {
	UID           string          `json:"uid"`
	Action        string          `json:"action"`
	State         string          `json:"state"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	CodeMECeFDGI  string          `json:"code_mecef_dgi,omitempty"`
	QrCode        string          `json:"qr_code,omitempty"`
	DateTime      string          `json:"date_time,omitempty"`
	Counters      string          `json:"counters,omitempty"`
	Nim           string          `json:"nim,omitempty"`
	Response      domain.Response `json:"response,omitempty"`
}

// PendingSubmissionResponse état d'une soumission en attente de finalisation.
type PendingSubmissionResponse struct {
	UID              string    `json:"uid"`
	PosID            string    `json:"pos_id,omitempty"`
	State            string    `json:"state"`
	SubmittedAt      time.Time `json:"submitted_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresAtMs      int64     `json:"expires_at_ms"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Total            int64     `json:"total"`
}
