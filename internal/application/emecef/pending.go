package emecef

import (
	"sort"
	"sync"
	"time"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

// PendingState état d'une soumission côté caisse.
type PendingState string

const (
	StateSubmitted PendingState = "SUBMITTED"
	StateConfirmed PendingState = "CONFIRMED"
	StateCancelled PendingState = "CANCELLED"
	StateExpired   PendingState = "EXPIRED"
)

// DefaultPendingTTL fenêtre laissée à l'opérateur pour confirmer ou annuler.
const DefaultPendingTTL = 2 * time.Minute

// DefaultConfirmedRetention délai, après l'échéance, pendant lequel une
// facture certifiée mais non enregistrée reste disponible pour un nouvel essai.
const DefaultConfirmedRetention = time.Hour

// PendingSubmission facture soumise à la DGI, en attente de finalisation.
// Conservée en mémoire uniquement : un redémarrage l'oublie.
type PendingSubmission struct {
	UID         string
	PosID       string
	SubmittedAt time.Time
	ExpiresAt   time.Time
	State       PendingState
	CreatedBy   string

	Payload         *domain.NormalizedPayload
	InvoiceResponse domain.Response // réponse de soumission
	StatusResponse  domain.Response // dernier /status connu au moment de la soumission

	// Renseignés après une confirmation DGI réussie dont l'enregistrement
	// local a échoué : une nouvelle confirmation persiste sans rappeler l'API.
	ConfirmResponse domain.Response
	Certification   *domain.Certification

	inFlight bool
}

// ExpiresAtMs échéance en millisecondes epoch, pour le compte à rebours de l'UI.
func (p *PendingSubmission) ExpiresAtMs() int64 {
	return p.ExpiresAt.UnixMilli()
}

// Remaining temps restant avant expiration, jamais négatif.
func (p *PendingSubmission) Remaining(now time.Time) time.Duration {
	d := p.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// PendingStore soumissions en attente, indexées par UID.
// Begin pose un verrou par UID : une confirmation et une annulation ne
// peuvent pas se croiser.
type PendingStore struct {
	mu        sync.Mutex
	items     map[string]*PendingSubmission
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewPendingStore(ttl time.Duration, clock func() time.Time) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &PendingStore{
		items:     make(map[string]*PendingSubmission),
		ttl:       ttl,
		retention: DefaultConfirmedRetention,
		now:       clock,
	}
}

// SetConfirmedRetention remplace DefaultConfirmedRetention ; d <= 0 est ignoré.
func (s *PendingStore) SetConfirmedRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.retention = d
	s.mu.Unlock()
}

// Add enregistre une soumission réussie et fixe son échéance.
func (s *PendingStore) Add(sub *PendingSubmission) PendingSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sub.SubmittedAt = now
	sub.ExpiresAt = now.Add(s.ttl)
	sub.State = StateSubmitted
	sub.inFlight = false
	s.items[sub.UID] = sub
	return *sub
}

// Get copie de la soumission uid.
func (s *PendingStore) Get(uid string) (PendingSubmission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[uid]
	if !ok {
		return PendingSubmission{}, false
	}
	return *sub, true
}

// Begin réserve uid pour une finalisation. Rejette, avant tout appel réseau,
// une soumission inconnue, déjà en cours de finalisation ou expirée.
// Une soumission confirmée mais non enregistrée n'accepte qu'une nouvelle
// confirmation, même après l'échéance.
func (s *PendingStore) Begin(uid string, action domain.FinalizeAction) (PendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.items[uid]
	if !ok {
		return PendingSubmission{}, domain.Newf(domain.ErrSubmissionUnknown, "aucune soumission en attente pour %s", uid)
	}
	if sub.inFlight {
		return PendingSubmission{}, domain.Newf(domain.ErrFinalizationInProgress, "finalisation déjà en cours pour %s", uid)
	}
	if sub.State == StateConfirmed {
		if action != domain.ActionConfirm {
			return PendingSubmission{}, domain.Newf(domain.ErrAlreadyConfirmed, "%s déjà confirmée auprès de la DGI", uid)
		}
		sub.inFlight = true
		return *sub, nil
	}
	// EXPIRED reste visible jusqu'au passage du balayeur.
	if sub.State == StateExpired || s.now().After(sub.ExpiresAt) {
		sub.State = StateExpired
		return PendingSubmission{}, domain.Newf(domain.ErrSubmissionExpired, "délai de finalisation dépassé pour %s", uid)
	}
	sub.inFlight = true
	return *sub, nil
}

// Release libère uid après un échec ; l'état est inchangé.
func (s *PendingStore) Release(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.items[uid]; ok {
		sub.inFlight = false
	}
}

// MarkConfirmed enregistre la certification DGI et libère uid ; la soumission
// reste présente jusqu'à son enregistrement local (Discard).
func (s *PendingStore) MarkConfirmed(uid string, resp domain.Response, cert *domain.Certification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.items[uid]; ok {
		sub.State = StateConfirmed
		sub.ConfirmResponse = resp
		sub.Certification = cert
		sub.inFlight = false
	}
}

// Discard oublie uid (confirmée et enregistrée, ou annulée).
func (s *PendingStore) Discard(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, uid)
}

// SweepExpired retire les soumissions non finalisées dont l'échéance est
// passée et les retourne, état EXPIRED. Aucune action n'est faite côté DGI.
func (s *PendingStore) SweepExpired() []PendingSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var expired []PendingSubmission
	for uid, sub := range s.items {
		if sub.inFlight {
			continue
		}
		switch {
		case sub.State == StateExpired:
		case sub.State == StateSubmitted && now.After(sub.ExpiresAt):
			sub.State = StateExpired
		default:
			continue
		}
		expired = append(expired, *sub)
		delete(s.items, uid)
	}
	sortBySubmission(expired)
	return expired
}

// SweepStaleConfirmed retire les factures certifiées dont l'enregistrement
// local n'a pas abouti dans le délai de rétention et les retourne.
func (s *PendingStore) SweepStaleConfirmed() []PendingSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var stale []PendingSubmission
	for uid, sub := range s.items {
		if sub.State != StateConfirmed || sub.inFlight || !now.After(sub.ExpiresAt.Add(s.retention)) {
			continue
		}
		stale = append(stale, *sub)
		delete(s.items, uid)
	}
	sortBySubmission(stale)
	return stale
}

func sortBySubmission(subs []PendingSubmission) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
}

// Len nombre de soumissions en mémoire.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Now horloge du magasin.
func (s *PendingStore) Now() time.Time {
	return s.now()
}
