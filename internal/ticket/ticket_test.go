package ticket

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMasterKey = []byte("0123456789abcdef0123456789abcdef")

func newTestAuthority(t *testing.T, opts ...Option) *Authority {
	t.Helper()
	a, err := NewAuthority(testMasterKey, opts...)
	require.NoError(t, err)
	return a
}

func TestNewAuthorityRejectsBadKey(t *testing.T) {
	_, err := NewAuthority([]byte("too short"))
	assert.Error(t, err)
}

func TestGenerateSessionKey(t *testing.T) {
	first, err := GenerateSessionKey()
	require.NoError(t, err)
	second, err := GenerateSessionKey()
	require.NoError(t, err)

	assert.Len(t, first, 64, "32 random bytes hex encoded")
	assert.NotEqual(t, first, second)
}

func TestTGTRoundTrip(t *testing.T) {
	a := newTestAuthority(t)

	opaque, err := a.IssueTGT("user-1", "session-key")
	require.NoError(t, err)

	p, err := a.ValidateTGT(opaque)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "session-key", p.SessionKey)
	assert.Empty(t, p.Service)
}

func TestServiceTicketRoundTrip(t *testing.T) {
	a := newTestAuthority(t)

	opaque, err := a.IssueServiceTicket("user-1", "storage", "session-key")
	require.NoError(t, err)

	p, err := a.ValidateServiceTicket(opaque, "storage")
	require.NoError(t, err)
	assert.Equal(t, "storage", p.Service)

	_, err = a.ValidateServiceTicket(opaque, "billing")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateServiceTicketRequiresExpectedService(t *testing.T) {
	a := newTestAuthority(t)

	opaque, err := a.IssueServiceTicket("user-1", "storage", "session-key")
	require.NoError(t, err)

	// An empty expected service must never act as a wildcard.
	_, err = a.ValidateServiceTicket(opaque, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTicketTypesAreNotInterchangeable(t *testing.T) {
	a := newTestAuthority(t)

	tgt, err := a.IssueTGT("user-1", "session-key")
	require.NoError(t, err)
	svc, err := a.IssueServiceTicket("user-1", "storage", "session-key")
	require.NoError(t, err)

	_, err = a.ValidateServiceTicket(tgt, "storage")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = a.ValidateTGT(svc)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestIssueRejectsEmptyFields(t *testing.T) {
	a := newTestAuthority(t)

	_, err := a.IssueTGT("", "session-key")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = a.IssueTGT("user-1", "")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = a.IssueServiceTicket("user-1", "", "session-key")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestExpiredTicketIsRejected(t *testing.T) {
	now := time.Now()
	clock := &now
	a := newTestAuthority(t,
		WithClock(func() time.Time { return *clock }),
		WithTGTTTL(time.Minute),
		WithServiceTicketTTL(30*time.Second),
	)

	tgt, err := a.IssueTGT("user-1", "session-key")
	require.NoError(t, err)
	svc, err := a.IssueServiceTicket("user-1", "storage", "session-key")
	require.NoError(t, err)

	later := now.Add(45 * time.Second)
	clock = &later
	_, err = a.ValidateTGT(tgt)
	assert.NoError(t, err, "TGT outlives the service ticket")
	_, err = a.ValidateServiceTicket(svc, "storage")
	assert.ErrorIs(t, err, ErrInvalid)

	expired := now.Add(2 * time.Minute)
	clock = &expired
	_, err = a.ValidateTGT(tgt)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTamperedTicketIsRejected(t *testing.T) {
	a := newTestAuthority(t)

	opaque, err := a.IssueTGT("user-1", "session-key")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	_, err = a.ValidateTGT(base64.RawURLEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGarbageInput(t *testing.T) {
	a := newTestAuthority(t)

	for _, opaque := range []string{"", "not base64!!", "c2hvcnQ"} {
		_, err := a.ValidateTGT(opaque)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", opaque)
	}
}

func TestTicketsFromDifferentKeysDoNotCross(t *testing.T) {
	a := newTestAuthority(t)
	b, err := NewAuthority([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	opaque, err := a.IssueTGT("user-1", "session-key")
	require.NoError(t, err)

	_, err = b.ValidateTGT(opaque)
	assert.ErrorIs(t, err, ErrInvalid)
}
