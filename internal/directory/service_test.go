package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func newTestDirectory() *Directory {
	return New(NewMemoryStore())
}

// wrappingStore decorates lookups the way a persistence layer would, adding
// context to every error it returns.
type wrappingStore struct {
	Store
}

func (s wrappingStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.Store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s wrappingStore) FindService(ctx context.Context, id string) (*Service, error) {
	svc, err := s.Store.FindService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	return svc, nil
}

func (s wrappingStore) FindServiceByName(ctx context.Context, name string) (*Service, error) {
	svc, err := s.Store.FindServiceByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find service by name: %w", err)
	}
	return svc, nil
}

func TestDirectoryHandlesWrappedStoreErrors(t *testing.T) {
	d := New(wrappingStore{Store: NewMemoryStore()})
	ctx := context.Background()

	u, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("RegisterUser over wrapping store: %v", err)
	}
	if _, err := d.RegisterUser(ctx, "Other", "ada@example.com", "different", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email over wrapping store: %v", err)
	}
	if _, err := d.Authenticate(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown account over wrapping store: %v", err)
	}
	if got, err := d.Authenticate(ctx, "ada@example.com", "s3cret-pass"); err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate over wrapping store: %v %v", got, err)
	}

	svc, err := d.CreateService(ctx, "", "storage", "")
	if err != nil {
		t.Fatalf("CreateService over wrapping store: %v", err)
	}
	if _, err := d.CreateService(ctx, "", "storage", "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate service over wrapping store: %v", err)
	}
	if got, err := d.FindService(ctx, "storage"); err != nil || got.ID != svc.ID {
		t.Fatalf("FindService by name over wrapping store: %v %v", got, err)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	u, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", "1990-12-10")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected a user id")
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in clear")
	}

	got, err := d.Authenticate(ctx, "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated id = %q, want %q", got.ID, u.ID)
	}

	if _, err := d.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := d.Authenticate(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	if _, err := d.RegisterUser(ctx, "Ada", "  Ada@Example.COM ", "s3cret-pass", ""); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := d.Authenticate(ctx, "ada@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("Authenticate with normalized email: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	if _, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", ""); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := d.RegisterUser(ctx, "Other", "ada@example.com", "different", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	cases := []struct{ name, email, password string }{
		{"", "ada@example.com", "s3cret-pass"},
		{"Ada", "", "s3cret-pass"},
		{"Ada", "not-an-email", "s3cret-pass"},
		{"Ada", "ada@example.com", ""},
	}
	for _, c := range cases {
		if _, err := d.RegisterUser(ctx, c.name, c.email, c.password, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("RegisterUser(%q,%q,...) = %v, want ErrInvalidInput", c.name, c.email, err)
		}
	}
}

func TestServicesAndAssignments(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	org, err := d.CreateOrganization(ctx, "Acme")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	svc, err := d.CreateService(ctx, org.ID, "storage", "object storage")
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if _, err := d.CreateService(ctx, org.ID, "storage", "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate service: %v", err)
	}

	// Resolve by id and by name.
	if got, err := d.FindService(ctx, svc.ID); err != nil || got.Name != "storage" {
		t.Fatalf("FindService by id: %v %v", got, err)
	}
	if got, err := d.FindService(ctx, "storage"); err != nil || got.ID != svc.ID {
		t.Fatalf("FindService by name: %v %v", got, err)
	}

	u, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if _, err := d.ActiveAssignment(ctx, u.ID, svc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unassigned lookup: %v", err)
	}
	a, err := d.AssignService(ctx, u.ID, svc.ID, "admin")
	if err != nil {
		t.Fatalf("AssignService: %v", err)
	}
	if a.Role != "admin" || !a.Enabled {
		t.Fatalf("unexpected assignment %+v", a)
	}
	got, err := d.ActiveAssignment(ctx, u.ID, svc.ID)
	if err != nil {
		t.Fatalf("ActiveAssignment: %v", err)
	}
	if got.Role != "admin" {
		t.Fatalf("role = %q, want admin", got.Role)
	}

	// Re-assigning replaces the role.
	if _, err := d.AssignService(ctx, u.ID, svc.ID, "viewer"); err != nil {
		t.Fatalf("AssignService: %v", err)
	}
	got, err = d.ActiveAssignment(ctx, u.ID, svc.ID)
	if err != nil {
		t.Fatalf("ActiveAssignment: %v", err)
	}
	if got.Role != "viewer" {
		t.Fatalf("role = %q, want viewer", got.Role)
	}
}

func TestAssignServiceChecksReferences(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	u, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if _, err := d.AssignService(ctx, u.ID, "missing-service", "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing service: %v", err)
	}
	svc, err := d.CreateService(ctx, "", "storage", "")
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if _, err := d.AssignService(ctx, "missing-user", svc.ID, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: %v", err)
	}
}

func TestDisabledAssignmentIsInactive(t *testing.T) {
	store := NewMemoryStore()
	d := New(store)
	ctx := context.Background()

	u, err := d.RegisterUser(ctx, "Ada", "ada@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	svc, err := d.CreateService(ctx, "", "storage", "")
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if _, err := d.AssignService(ctx, u.ID, svc.ID, "admin"); err != nil {
		t.Fatalf("AssignService: %v", err)
	}

	if err := store.UpsertAssignment(ctx, &Assignment{UserID: u.ID, ServiceID: svc.ID, Role: "admin", Enabled: false}); err != nil {
		t.Fatalf("UpsertAssignment: %v", err)
	}
	if _, err := d.ActiveAssignment(ctx, u.ID, svc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("disabled assignment: %v", err)
	}
}
