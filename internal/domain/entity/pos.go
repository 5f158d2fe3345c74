package entity

import "time"

// PointOfSale point de vente e-MECeF configuré par un administrateur.
// Au plus un point de vente est actif à un instant donné.
type PointOfSale struct {
	ID      string
	Name    string
	BaseURL string
	// Token valeur stockée : chiffrée si TokenEncrypted, sinon en clair.
	Token          string
	TokenEncrypted bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasToken indique qu'un jeton est enregistré.
func (p *PointOfSale) HasToken() bool {
	return p.Token != ""
}
