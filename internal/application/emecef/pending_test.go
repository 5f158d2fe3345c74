package emecef_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavebenin/emecef-pos/internal/application/emecef"
	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

func newStore(clock *fakeClock) *emecef.PendingStore {
	return emecef.NewPendingStore(2*time.Minute, clock.Now)
}

func TestPendingStore_AddFixeEcheance(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)

	sub := s.Add(&emecef.PendingSubmission{UID: "u1"})
	assert.Equal(t, emecef.StateSubmitted, sub.State)
	assert.Equal(t, clock.Now().Add(2*time.Minute), sub.ExpiresAt)
	assert.Equal(t, sub.ExpiresAt.UnixMilli(), sub.ExpiresAtMs())
	assert.Equal(t, 2*time.Minute, sub.Remaining(clock.Now()))
}

func TestPendingStore_BeginInconnu(t *testing.T) {
	s := newStore(newFakeClock())
	_, err := s.Begin("absent", domain.ActionConfirm)
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestPendingStore_ExpirationBloqueLaFinalisation(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)
	s.Add(&emecef.PendingSubmission{UID: "u1"})

	clock.Advance(2*time.Minute + time.Millisecond)
	_, err := s.Begin("u1", domain.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrSubmissionExpired)

	sub, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, emecef.StateExpired, sub.State)

	_, err = s.Begin("u1", domain.ActionConfirm)
	assert.ErrorIs(t, err, domain.ErrSubmissionExpired)

	expired := s.SweepExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, emecef.StateExpired, expired[0].State)
	_, err = s.Begin("u1", domain.ActionConfirm)
	assert.ErrorIs(t, err, domain.ErrSubmissionUnknown)
}

func TestPendingStore_EcheanceExacteEncoreValide(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)
	s.Add(&emecef.PendingSubmission{UID: "u1"})

	clock.Advance(2 * time.Minute)
	_, err := s.Begin("u1", domain.ActionConfirm)
	assert.NoError(t, err)
}

func TestPendingStore_VerrouParUID(t *testing.T) {
	s := newStore(newFakeClock())
	s.Add(&emecef.PendingSubmission{UID: "u1"})

	_, err := s.Begin("u1", domain.ActionConfirm)
	require.NoError(t, err)

	_, err = s.Begin("u1", domain.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrFinalizationInProgress)

	s.Release("u1")
	_, err = s.Begin("u1", domain.ActionCancel)
	assert.NoError(t, err)
}

func TestPendingStore_ConfirmeeNonEnregistree(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)
	s.Add(&emecef.PendingSubmission{UID: "u1"})
	_, err := s.Begin("u1", domain.ActionConfirm)
	require.NoError(t, err)

	cert := &domain.Certification{CodeMECeFDGI: "CODE"}
	s.MarkConfirmed("u1", domain.Response{"codeMECeFDGI": "CODE"}, cert)

	clock.Advance(10 * time.Minute)
	_, err = s.Begin("u1", domain.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)

	sub, err := s.Begin("u1", domain.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, emecef.StateConfirmed, sub.State)
	assert.Equal(t, "CODE", sub.Certification.CodeMECeFDGI)

	assert.Empty(t, s.SweepExpired())
	assert.Empty(t, s.SweepStaleConfirmed())
	s.Discard("u1")
	assert.Equal(t, 0, s.Len())
}

func TestPendingStore_RetentionDesCertifiees(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)
	s.SetConfirmedRetention(10 * time.Minute)
	s.Add(&emecef.PendingSubmission{UID: "u1"})
	_, err := s.Begin("u1", domain.ActionConfirm)
	require.NoError(t, err)
	s.MarkConfirmed("u1", domain.Response{"codeMECeFDGI": "CODE"}, &domain.Certification{CodeMECeFDGI: "CODE"})

	clock.Advance(12 * time.Minute)
	assert.Empty(t, s.SweepStaleConfirmed())

	clock.Advance(time.Minute)
	stale := s.SweepStaleConfirmed()
	require.Len(t, stale, 1)
	assert.Equal(t, "CODE", stale[0].Certification.CodeMECeFDGI)
	assert.Equal(t, 0, s.Len())
}

func TestPendingStore_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	s := newStore(clock)
	s.Add(&emecef.PendingSubmission{UID: "ancien"})
	clock.Advance(time.Minute)
	s.Add(&emecef.PendingSubmission{UID: "recent"})
	clock.Advance(90 * time.Second)

	expired := s.SweepExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, "ancien", expired[0].UID)
	assert.Equal(t, emecef.StateExpired, expired[0].State)
	assert.Equal(t, 1, s.Len())
}

func TestPendingStore_TTLParDefaut(t *testing.T) {
	clock := newFakeClock()
	s := emecef.NewPendingStore(0, clock.Now)
	sub := s.Add(&emecef.PendingSubmission{UID: "u1"})
	assert.Equal(t, emecef.DefaultPendingTTL, sub.ExpiresAt.Sub(sub.SubmittedAt))
}
