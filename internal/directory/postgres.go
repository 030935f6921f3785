package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateOrganization(ctx context.Context, org *Organization) error {
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, created_at) values($1,$2,$3)`,
		org.ID, org.Name, org.CreatedAt,
	)
	return translateErr(err)
}

func (s *PGStore) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, created_at from organizations order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &org)
	}
	return res, rows.Err()
}

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, date_of_birth, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.DateOfBirth, u.CreatedAt,
	)
	return translateErr(err)
}

func (s *PGStore) FindUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, date_of_birth, created_at from users where id=$1`, id))
}

func (s *PGStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, date_of_birth, created_at from users where email=$1`, email))
}

func (s *PGStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.DateOfBirth, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) CreateService(ctx context.Context, svc *Service) error {
	_, err := s.db.ExecContext(ctx,
		`insert into services(id, organization_id, name, description, created_at)
		 values($1, nullif($2,''), $3, $4, $5)`,
		svc.ID, svc.OrganizationID, svc.Name, svc.Description, svc.CreatedAt,
	)
	return translateErr(err)
}

func (s *PGStore) FindService(ctx context.Context, id string) (*Service, error) {
	return s.scanService(s.db.QueryRowContext(ctx,
		`select id, coalesce(organization_id,''), name, description, created_at from services where id=$1`, id))
}

func (s *PGStore) FindServiceByName(ctx context.Context, name string) (*Service, error) {
	return s.scanService(s.db.QueryRowContext(ctx,
		`select id, coalesce(organization_id,''), name, description, created_at from services where name=$1`, name))
}

func (s *PGStore) scanService(row *sql.Row) (*Service, error) {
	var svc Service
	if err := row.Scan(&svc.ID, &svc.OrganizationID, &svc.Name, &svc.Description, &svc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (s *PGStore) ListServices(ctx context.Context) ([]*Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, coalesce(organization_id,''), name, description, created_at from services order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.OrganizationID, &svc.Name, &svc.Description, &svc.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &svc)
	}
	return res, rows.Err()
}

func (s *PGStore) UpsertAssignment(ctx context.Context, a *Assignment) error {
	_, err := s.db.ExecContext(ctx,
		`insert into user_services(user_id, service_id, role, enabled, created_at)
		 values($1,$2,$3,$4,$5)
		 on conflict (user_id, service_id) do update set role=excluded.role, enabled=excluded.enabled`,
		a.UserID, a.ServiceID, a.Role, a.Enabled, a.CreatedAt,
	)
	return translateErr(err)
}

func (s *PGStore) FindAssignment(ctx context.Context, userID, serviceID string) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`select user_id, service_id, role, enabled, created_at from user_services
		 where user_id=$1 and service_id=$2`, userID, serviceID)
	var a Assignment
	if err := row.Scan(&a.UserID, &a.ServiceID, &a.Role, &a.Enabled, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// translateErr maps unique-constraint violations onto ErrConflict so callers
// do not depend on driver error types.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
