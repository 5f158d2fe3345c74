package emecef

import (
	"encoding/json"
	"strings"
)

// Response réponse JSON de l'API e-MECeF, décodée avec json.Number.
// Une réponse non JSON est enveloppée sous la clé "raw".
type Response map[string]any

// RawKey clé d'enveloppe d'un corps non JSON.
const RawKey = "raw"

// Credentials point d'accès résolu pour un appel e-MECeF.
type Credentials struct {
	PosID   string
	BaseURL string
	Token   string // sans préfixe "Bearer "
	Source  string // db, env, db+env
}

// CacheKey clé du cache d'identité vendeur ; sépare les points de vente.
func (c Credentials) CacheKey() string {
	return c.PosID + "|" + strings.TrimRight(c.BaseURL, "/")
}

// FinalizeAction action de finalisation d'une facture soumise.
type FinalizeAction string

const (
	ActionConfirm FinalizeAction = "confirm"
	ActionCancel  FinalizeAction = "cancel"
)

// FrenchSynonym nom d'action utilisé par certains déploiements.
func (a FinalizeAction) FrenchSynonym() string {
	switch a {
	case ActionConfirm:
		return "confirmer"
	case ActionCancel:
		return "annuler"
	default:
		return ""
	}
}

// ParseFinalizeAction accepte confirm/cancel et leurs synonymes français.
func ParseFinalizeAction(s string) (FinalizeAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirm", "confirmer":
		return ActionConfirm, nil
	case "cancel", "annuler":
		return ActionCancel, nil
	default:
		return "", Newf(ErrInvalidAction, "action %q inconnue (confirm ou cancel)", s)
	}
}

// Chemins historiques de l'UID dans la réponse de soumission, par priorité.
var uidPaths = [][]string{
	{"uid"}, {"UID"}, {"invoiceUid"}, {"invoice_uid"}, {"invoiceId"}, {"invoice_id"}, {"id"},
	{"data", "uid"}, {"data", "UID"}, {"data", "invoiceUid"},
	{"result", "uid"},
}

// ExtractUID lit l'identifiant de la facture soumise. Un errorCode applicatif
// non nul est une erreur métier même sous HTTP 200 ; une réponse sans UID
// n'est jamais un succès.
func ExtractUID(resp Response) (string, error) {
	if err := BusinessError(resp); err != nil {
		return "", err
	}
	for _, path := range uidPaths {
		if s := toString(dig(resp, path)); s != "" {
			return s, nil
		}
	}
	return "", &Error{Code: ErrInvalidResponse, Message: "aucun UID dans la réponse de soumission", Action: "submit", Body: resp}
}

// BusinessError retourne une erreur EMCF_ERREUR_METIER si resp porte un
// errorCode différent de 0 (false vaut 0).
func BusinessError(resp Response) error {
	code, ok := lookup(resp, []string{"errorCode", "error_code"})
	if !ok {
		return nil
	}
	s := toString(code)
	if s == "" || s == "0" || s == "false" {
		return nil
	}
	msg := stringField(resp, []string{"errorDesc", "error_desc", "message"})
	if msg == "" {
		msg = "erreur signalée par l'API e-MECeF"
	}
	return &Error{Code: ErrBusiness, Message: s + " " + msg, Body: resp}
}

// Certification éléments de sécurité renvoyés à la confirmation.
type Certification struct {
	CodeMECeFDGI string
	QrCode       string
	DateTime     string
	Counters     string
	Nim          string
}

// ParseConfirmation exige codeMECeFDGI : son absence est un échec de
// confirmation, même si l'appel HTTP a réussi.
func ParseConfirmation(resp Response) (*Certification, error) {
	if err := BusinessError(resp); err != nil {
		return nil, err
	}
	c := &Certification{
		CodeMECeFDGI: stringField(resp, []string{"codeMECeFDGI", "codeMecefDgi", "code_mecef_dgi"}),
		QrCode:       stringField(resp, []string{"qrCode", "qr_code"}),
		DateTime:     stringField(resp, []string{"dateTime", "date_time"}),
		Counters:     stringField(resp, []string{"counters"}),
		Nim:          stringField(resp, []string{"nim"}),
	}
	if c.CodeMECeFDGI == "" {
		return nil, &Error{Code: ErrConfirmationWithoutCode, Message: "réponse de confirmation sans codeMECeFDGI", Action: string(ActionConfirm), Body: resp}
	}
	return c, nil
}

// VendorInfoFrom extrait nim/ifu d'une réponse /status ; nil si incomplet.
func VendorInfoFrom(resp Response) *VendorInfo {
	nim := stringField(resp, []string{"nim", "NIM"})
	ifu := stringField(resp, []string{"ifu", "IFU"})
	if nim == "" || ifu == "" {
		return nil
	}
	return &VendorInfo{Nim: nim, Ifu: ifu}
}

// ParseResponse décode un corps texte ; un corps non JSON (page HTML d'un
// portail mal configuré...) est conservé sous "raw".
func ParseResponse(body []byte) Response {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return Response{}
	}
	if m, err := DecodeObject([]byte(trimmed)); err == nil && m != nil {
		return Response(m)
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		return Response{"data": v}
	}
	return Response{RawKey: trimmed}
}

func dig(m map[string]any, path []string) any {
	var cur any = m
	for _, k := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}
