package directory

import "context"

// Store describes persistence operations required by the directory.
type Store interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	ListOrganizations(ctx context.Context) ([]*Organization, error)

	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	CreateService(ctx context.Context, svc *Service) error
	FindService(ctx context.Context, id string) (*Service, error)
	FindServiceByName(ctx context.Context, name string) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)

	UpsertAssignment(ctx context.Context, a *Assignment) error
	FindAssignment(ctx context.Context, userID, serviceID string) (*Assignment, error)
}
