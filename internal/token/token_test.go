package token

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestAuthority(t *testing.T, opts ...Option) *Authority {
	t.Helper()
	a, err := NewAuthority("access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	return a
}

func TestNewAuthorityValidatesSecrets(t *testing.T) {
	if _, err := NewAuthority("", "refresh-secret"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewAuthority("access-secret", ""); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewAuthority("shared", "shared"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	a := newTestAuthority(t)

	signed, expires, err := a.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if until := time.Until(expires); until < 19*time.Minute || until > 21*time.Minute {
		t.Fatalf("unexpected access expiry, %v from now", until)
	}

	claims, err := a.Verify(signed, Access)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.TokenType != string(Access) {
		t.Fatalf("token_type = %q, want access", claims.TokenType)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestClassesAreNotInterchangeable(t *testing.T) {
	a := newTestAuthority(t)

	access, _, err := a.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := a.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := a.Verify(access, Refresh); !errors.Is(err, ErrMalformed) {
		t.Fatalf("access verified as refresh: %v", err)
	}
	if _, err := a.Verify(refresh, Access); !errors.Is(err, ErrMalformed) {
		t.Fatalf("refresh verified as access: %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	now := time.Now()
	a := newTestAuthority(t, WithClock(func() time.Time { return now }), WithAccessTTL(time.Minute))

	signed, _, err := a.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := a.Verify(signed, Access); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	a := newTestAuthority(t)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := a.Verify(raw, Access); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Verify(%q) = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	a := newTestAuthority(t)
	other := newTestAuthority(t, WithIssuer("someone-else"))

	signed, _, err := other.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := a.Verify(signed, Access); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a := newTestAuthority(t)
	b, err := NewAuthority("other-access", "other-refresh")
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}

	signed, _, err := b.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := a.Verify(signed, Access); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	a := newTestAuthority(t)
	if _, _, err := a.IssueAccess(""); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := SubjectFromContext(ctx); ok {
		t.Fatal("empty context should carry no subject")
	}
	ctx = ContextWithSubject(ctx, "user-1")
	if got, ok := SubjectFromContext(ctx); !ok || got != "user-1" {
		t.Fatalf("subject = %q, %v", got, ok)
	}

	ctx = ContextWithToken(ctx, "raw-token")
	if got, ok := TokenFromContext(ctx); !ok || got != "raw-token" {
		t.Fatalf("token = %q, %v", got, ok)
	}
}
