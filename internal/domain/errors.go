package domain

import "errors"

// Erreurs de domaine (sans dépendance externe).
var (
	ErrNotFound          = errors.New("ressource introuvable")
	ErrInvalidInput      = errors.New("entrée invalide")
	ErrDuplicate         = errors.New("ressource en double")
	ErrUnauthorized      = errors.New("non autorisé")
	ErrForbidden         = errors.New("accès refusé")
	ErrConflict          = errors.New("conflit avec l'état courant")
	ErrInsufficientStock = errors.New("stock insuffisant")
	ErrImmutable         = errors.New("facture certifiée : modification interdite")
)
