package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTeacherInvitation(t *testing.T, ttl time.Duration) *Invitation {
	t.Helper()
	inv, err := NewTeacherInvitation("ABC123", "Teacher@Example.com", uuid.New(), InvitationMetadata{
		FirstName:    "Jane",
		LastName:     "Doe",
		Subjects:     []string{"Math"},
		TempPassword: "a1b2c3d4e5f60718",
	}, "tok-123", ttl)
	require.NoError(t, err)
	return inv
}

func TestNewTeacherInvitationValidation(t *testing.T) {
	_, err := NewTeacherInvitation("ABC123", "t@example.com", uuid.New(), InvitationMetadata{}, "tok", time.Hour)
	assert.ErrorIs(t, err, ErrTeacherSubjectsRequired)

	_, err = NewTeacherInvitation("ABC123", "t@example.com", uuid.New(), InvitationMetadata{
		Subjects:   []string{"Math"},
		StudentIDs: []string{"some-id"},
	}, "tok", time.Hour)
	assert.ErrorIs(t, err, ErrTeacherHasStudentIDs)

	inv := pendingTeacherInvitation(t, time.Hour)
	assert.Equal(t, InvitationPending, inv.Status)
	assert.Equal(t, RoleTeacher, inv.Role)
	assert.Equal(t, "teacher@example.com", inv.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), inv.ExpiresAt, 5*time.Second)
}

func TestNewParentInvitationValidation(t *testing.T) {
	_, err := NewParentInvitation("ABC123", "p@example.com", uuid.New(), InvitationMetadata{}, "tok", time.Hour)
	assert.ErrorIs(t, err, ErrParentStudentIDsRequired)

	_, err = NewParentInvitation("ABC123", "p@example.com", uuid.New(), InvitationMetadata{
		StudentIDs: []string{"s1"},
		Subjects:   []string{"Math"},
	}, "tok", time.Hour)
	assert.ErrorIs(t, err, ErrParentHasTeacherFields)

	inv, err := NewParentInvitation("ABC123", "  P@Example.com ", uuid.New(), InvitationMetadata{
		StudentIDs: []string{"s1", "s2"},
	}, "tok", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RoleParent, inv.Role)
	assert.Equal(t, "p@example.com", inv.Email)
}

func TestInvitationValidity(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	assert.False(t, inv.IsExpired())
	assert.True(t, inv.IsValid())

	// Push the expiry into the past; the stored status stays pending.
	inv.ExpiresAt = time.Now().Add(-time.Minute)
	assert.True(t, inv.IsExpired())
	assert.False(t, inv.IsValid())
	assert.Equal(t, InvitationPending, inv.Status)
}

func TestInvitationAccept(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	acceptor := uuid.New()

	require.NoError(t, inv.Accept(acceptor))
	assert.Equal(t, InvitationAccepted, inv.Status)
	require.NotNil(t, inv.AcceptedBy)
	assert.Equal(t, acceptor, *inv.AcceptedBy)
	assert.NotNil(t, inv.AcceptedAt)

	// Accepting twice is not a valid transition.
	assert.ErrorIs(t, inv.Accept(acceptor), ErrInvitationNotValid)
}

func TestInvitationAcceptRejectsExpired(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	inv.ExpiresAt = time.Now().Add(-time.Minute)

	err := inv.Accept(uuid.New())
	assert.ErrorIs(t, err, ErrInvitationNotValid)
	assert.Equal(t, InvitationPending, inv.Status)
	assert.Nil(t, inv.AcceptedBy)
}

func TestInvitationCancel(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	canceller := uuid.New()

	require.NoError(t, inv.Cancel(canceller, "position filled"))
	assert.Equal(t, InvitationCancelled, inv.Status)
	require.NotNil(t, inv.CancelledBy)
	assert.Equal(t, canceller, *inv.CancelledBy)
	assert.Equal(t, "position filled", inv.CancellationReason)

	assert.ErrorIs(t, inv.Cancel(canceller, "again"), ErrInvitationNotCancellable)
}

func TestInvitationCancelAllowedWhileExpiredButPending(t *testing.T) {
	// The guard is on the stored status, not on the clock: an invitation
	// past its expiry that no sweep has flipped yet can still be cancelled.
	inv := pendingTeacherInvitation(t, time.Hour)
	inv.ExpiresAt = time.Now().Add(-time.Hour)

	require.NoError(t, inv.Cancel(uuid.New(), ""))
	assert.Equal(t, InvitationCancelled, inv.Status)
}

func TestInvitationCancelRejectsAccepted(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	require.NoError(t, inv.Accept(uuid.New()))

	assert.ErrorIs(t, inv.Cancel(uuid.New(), ""), ErrInvitationNotCancellable)
}

func TestInvitationResend(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)

	require.NoError(t, inv.Resend(72*time.Hour))
	assert.Equal(t, InvitationPending, inv.Status)
	assert.Equal(t, 1, inv.ResendCount)
	assert.NotNil(t, inv.LastResendAt)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), inv.ExpiresAt, 5*time.Second)

	require.NoError(t, inv.Resend(72*time.Hour))
	assert.Equal(t, 2, inv.ResendCount)
}

func TestInvitationResendRevivesSweptRow(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	inv.Status = InvitationExpired
	inv.ExpiresAt = time.Now().Add(-24 * time.Hour)

	require.NoError(t, inv.Resend(72*time.Hour))
	assert.Equal(t, InvitationPending, inv.Status)
	assert.True(t, inv.IsValid())
}

func TestInvitationResendRejectsResolved(t *testing.T) {
	accepted := pendingTeacherInvitation(t, time.Hour)
	require.NoError(t, accepted.Accept(uuid.New()))
	assert.ErrorIs(t, accepted.Resend(time.Hour), ErrInvitationNotResendable)

	cancelled := pendingTeacherInvitation(t, time.Hour)
	require.NoError(t, cancelled.Cancel(uuid.New(), ""))
	assert.ErrorIs(t, cancelled.Resend(time.Hour), ErrInvitationNotResendable)
}

func TestInvitationExtendExpirationIsAdditive(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	before := inv.ExpiresAt

	require.NoError(t, inv.ExtendExpiration(3*time.Hour))
	assert.Equal(t, before.Add(3*time.Hour), inv.ExpiresAt)

	require.NoError(t, inv.Accept(uuid.New()))
	assert.ErrorIs(t, inv.ExtendExpiration(time.Hour), ErrInvitationNotExtendable)
}

func TestInvitationDisplayFields(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	assert.Equal(t, "Jane Doe", inv.FullName())
	assert.Equal(t, "Jane Doe (teacher)", inv.DisplayName())
	assert.Equal(t, "Pending", inv.StatusDisplay())
	assert.NotEmpty(t, inv.TimeRemaining())

	inv.Metadata.FirstName = ""
	inv.Metadata.LastName = ""
	assert.Equal(t, inv.Email, inv.FullName())

	inv.ExpiresAt = time.Now().Add(-time.Minute)
	assert.Equal(t, "Expired", inv.StatusDisplay())
	assert.Equal(t, "expired", inv.TimeRemaining())

	require.NoError(t, inv.Cancel(uuid.New(), ""))
	assert.Equal(t, "Cancelled", inv.StatusDisplay())
	assert.Empty(t, inv.TimeRemaining())
}

func TestInvitationViewCarriesDerivedFields(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)
	view := inv.View()

	assert.True(t, view.IsValid)
	assert.False(t, view.IsExpired)
	assert.Equal(t, "Jane Doe", view.FullName)
	assert.Equal(t, "Pending", view.StatusDisplay)
	assert.NotEmpty(t, view.TimeRemaining)
}

func TestInvitationJSONHidesSecrets(t *testing.T) {
	inv := pendingTeacherInvitation(t, time.Hour)

	raw, err := json.Marshal(inv.View())
	require.NoError(t, err)
	body := string(raw)

	assert.NotContains(t, body, "tok-123")
	assert.NotContains(t, body, "a1b2c3d4e5f60718")
	assert.NotContains(t, body, "tempPassword")
	assert.Contains(t, body, "teacher@example.com")
}

func TestInvitationMetadataPersistsTempPassword(t *testing.T) {
	meta := InvitationMetadata{
		FirstName:    "Jane",
		Subjects:     []string{"Math", "Physics"},
		TempPassword: "a1b2c3d4e5f60718",
	}

	value, err := meta.Value()
	require.NoError(t, err)
	stored, ok := value.([]byte)
	require.True(t, ok)

	// The database encoding must keep the credential for resends.
	assert.True(t, strings.Contains(string(stored), "a1b2c3d4e5f60718"))

	var decoded InvitationMetadata
	require.NoError(t, decoded.Scan(stored))
	assert.Equal(t, meta.FirstName, decoded.FirstName)
	assert.Equal(t, meta.Subjects, decoded.Subjects)
	assert.Equal(t, meta.TempPassword, decoded.TempPassword)
}

func TestInvitationMetadataScanNil(t *testing.T) {
	decoded := InvitationMetadata{FirstName: "stale"}
	require.NoError(t, decoded.Scan(nil))
	assert.Equal(t, InvitationMetadata{}, decoded)
}
