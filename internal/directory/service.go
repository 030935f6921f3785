// Package directory manages the account records behind credential issuance:
// organizations, users, services, and the role assignments linking users to
// services. Password handling delegates to the secrets package.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"authgrid.org/internal/ids"
	"authgrid.org/internal/secrets"
)

// Directory validates requests and applies them against a Store.
type Directory struct {
	store Store
	now   func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Directory over the given store.
func New(store Store, opts ...Option) *Directory {
	d := &Directory{store: store, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterUser creates an account with a hashed password. The email must be
// unused.
func (d *Directory) RegisterUser(ctx context.Context, name, email, password, dateOfBirth string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if _, err := d.store.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	u := &User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		DateOfBirth:  dateOfBirth,
		CreatedAt:    d.now().UTC(),
	}
	if err := d.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks an email and password pair. Unknown accounts and wrong
// passwords both come back as ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := d.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !secrets.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// FindUser returns the user with the given id.
func (d *Directory) FindUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return d.store.FindUser(ctx, id)
}

// CreateOrganization registers a new organization.
func (d *Directory) CreateOrganization(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	org := &Organization{ID: ids.New(), Name: name, CreatedAt: d.now().UTC()}
	if err := d.store.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns all organizations in creation order.
func (d *Directory) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return d.store.ListOrganizations(ctx)
}

// CreateService registers a new service, optionally under an organization.
func (d *Directory) CreateService(ctx context.Context, orgID, name, description string) (*Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if _, err := d.store.FindServiceByName(ctx, name); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup service: %w", err)
	}
	svc := &Service{
		ID:             ids.New(),
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		CreatedAt:      d.now().UTC(),
	}
	if err := d.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// FindService resolves a service by id, falling back to name lookup so
// callers can address well-known services symbolically.
func (d *Directory) FindService(ctx context.Context, idOrName string) (*Service, error) {
	if idOrName == "" {
		return nil, ErrInvalidInput
	}
	svc, err := d.store.FindService(ctx, idOrName)
	if errors.Is(err, ErrNotFound) {
		return d.store.FindServiceByName(ctx, idOrName)
	}
	return svc, err
}

// ListServices returns all registered services.
func (d *Directory) ListServices(ctx context.Context) ([]*Service, error) {
	return d.store.ListServices(ctx)
}

// AssignService grants a user a role on a service. Repeated assignment
// updates the role and re-enables the grant.
func (d *Directory) AssignService(ctx context.Context, userID, serviceID, role string) (*Assignment, error) {
	role = strings.TrimSpace(role)
	if userID == "" || serviceID == "" || role == "" {
		return nil, ErrInvalidInput
	}
	if _, err := d.store.FindUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := d.store.FindService(ctx, serviceID); err != nil {
		return nil, err
	}
	a := &Assignment{
		UserID:    userID,
		ServiceID: serviceID,
		Role:      role,
		Enabled:   true,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.UpsertAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("assign service: %w", err)
	}
	return a, nil
}

// ActiveAssignment returns the enabled assignment linking userID to
// serviceID, or ErrNotFound when none exists or the grant is disabled.
func (d *Directory) ActiveAssignment(ctx context.Context, userID, serviceID string) (*Assignment, error) {
	a, err := d.store.FindAssignment(ctx, userID, serviceID)
	if err != nil {
		return nil, err
	}
	if !a.Enabled {
		return nil, ErrNotFound
	}
	return a, nil
}
