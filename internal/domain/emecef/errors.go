// Package emecef porte le cœur fiscal e-MECeF : adaptation des requêtes
// (conventions de nommage historiques), validation, normalisation du payload
// et taxonomie des erreurs étiquetées.
package emecef

import (
	"errors"
	"fmt"
	"strings"
)

// Kind famille d'origine d'une erreur e-MECeF. Permet à l'UI de distinguer
// « corriger la saisie » de « vérifier les paramètres » ou « réessayer ».
type Kind int

const (
	KindUnknown       Kind = iota
	KindValidation         // pré-vol, jamais réessayée
	KindConfiguration      // URL ou jeton manquant
	KindTransport          // DNS, connexion refusée...
	KindTimeout            // délai réseau dépassé
	KindProtocol           // HTTP non-2xx ou réponse inexploitable
	KindBusiness           // errorCode applicatif renvoyé par la DGI
	KindState              // machine d'état de finalisation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindBusiness:
		return "business"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Codes stables : le texte de chaque sentinelle est le préfixe de Error().
var (
	ErrInvalidPayload             = errors.New("PAYLOAD_INVALIDE")
	ErrCreditNoteReferenceMissing = errors.New("AVOIR_REFERENCE_MANQUANTE")
	ErrCustomerMissing            = errors.New("CLIENT_MANQUANT")
	ErrItemsMissing               = errors.New("ARTICLES_MANQUANTS")
	ErrItemTaxGroupInvalid        = errors.New("ARTICLE_TAXGROUP_INVALIDE")
	ErrItemQuantityInvalid        = errors.New("ARTICLE_QUANTITE_INVALIDE")
	ErrItemPriceInvalid           = errors.New("ARTICLE_PRIX_INVALIDE")
	ErrAibRateInvalid             = errors.New("AI_RATE_INVALIDE")
	ErrPaymentInvalid             = errors.New("PAIEMENT_INVALIDE")

	ErrNotConfigured = errors.New("EMCF_NON_CONFIGURE")

	ErrTimeout   = errors.New("EMCF_TIMEOUT")
	ErrTransport = errors.New("EMCF_TRANSPORT")

	ErrHTTP            = errors.New("EMCF_HTTP")
	ErrInvalidResponse = errors.New("API_RETOUR_INVALIDE")
	ErrBusiness        = errors.New("EMCF_ERREUR_METIER")

	ErrConfirmationWithoutCode = errors.New("CONFIRMATION_SANS_CODE")
	ErrSubmissionUnknown       = errors.New("SOUMISSION_INCONNUE")
	ErrSubmissionExpired       = errors.New("SOUMISSION_EXPIREE")
	ErrFinalizationInProgress  = errors.New("FINALISATION_EN_COURS")
	ErrAlreadyConfirmed        = errors.New("SOUMISSION_DEJA_CONFIRMEE")
	ErrInvalidAction           = errors.New("ACTION_INVALIDE")
)

// WarningPaymentMismatch avertissement non bloquant : Σ paiements ≠ total.
const WarningPaymentMismatch = "PAIEMENT_ECART"

var kinds = map[error]Kind{
	ErrInvalidPayload:             KindValidation,
	ErrCreditNoteReferenceMissing: KindValidation,
	ErrCustomerMissing:            KindValidation,
	ErrItemsMissing:               KindValidation,
	ErrItemTaxGroupInvalid:        KindValidation,
	ErrItemQuantityInvalid:        KindValidation,
	ErrItemPriceInvalid:           KindValidation,
	ErrAibRateInvalid:             KindValidation,
	ErrPaymentInvalid:             KindValidation,
	ErrInvalidAction:              KindValidation,
	ErrNotConfigured:              KindConfiguration,
	ErrTimeout:                    KindTimeout,
	ErrTransport:                  KindTransport,
	ErrHTTP:                       KindProtocol,
	ErrInvalidResponse:            KindProtocol,
	ErrConfirmationWithoutCode:    KindProtocol,
	ErrBusiness:                   KindBusiness,
	ErrSubmissionUnknown:          KindState,
	ErrSubmissionExpired:          KindState,
	ErrFinalizationInProgress:     KindState,
	ErrAlreadyConfirmed:           KindState,
}

// Error erreur étiquetée e-MECeF. Code est l'une des sentinelles ci-dessus ;
// Body/RawBody conservent la réponse brute de l'API pour le support.
// Le jeton bearer n'y figure jamais.
type Error struct {
	Code       error
	Message    string
	Action     string // submit, status, get, confirm, cancel...
	HTTPStatus int
	Body       any
	RawBody    string
	Cause      error
	// Payload facture normalisée soumise (sans jeton), renvoyée au support.
	Payload *NormalizedPayload
}

// WithPayload attache p à err s'il s'agit d'une *Error sans payload.
func WithPayload(err error, p *NormalizedPayload) error {
	var e *Error
	if errors.As(err, &e) && e.Payload == nil {
		e.Payload = p
	}
	return err
}

// Newf construit une erreur étiquetée.
func Newf(code error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Action != "" {
		fmt.Fprintf(&b, " [action=%s]", e.Action)
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " [http=%d]", e.HTTPStatus)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap expose la sentinelle et la cause à errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Code, e.Cause}
	}
	return []error{e.Code}
}

// Kind famille de l'erreur.
func (e *Error) Kind() Kind { return kinds[e.Code] }

// CodeOf retourne le code étiqueté porté par err, "" sinon.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != nil {
		return e.Code.Error()
	}
	for code := range kinds {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return ""
}

// KindOf retourne la famille de err (KindUnknown si non étiquetée).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	for code, k := range kinds {
		if errors.Is(err, code) {
			return k
		}
	}
	return KindUnknown
}
