package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreFindUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`select id, name, email, password_hash, date_of_birth, created_at from users where email=\$1`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "date_of_birth", "created_at"}).
			AddRow("u1", "Ada", "ada@example.com", "$argon2id$...", "1990-12-10", now))

	store := NewPGStore(db)
	u, err := store.FindUserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if u.ID != "u1" || u.Name != "Ada" {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreFindUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select id, name, email, password_hash, date_of_birth, created_at from users where id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "date_of_birth", "created_at"}))

	store := NewPGStore(db)
	if _, err := store.FindUser(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindUser = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`insert into users`).
		WithArgs("u1", "Ada", "ada@example.com", "hash", "1990-12-10", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	u := &User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "hash", DateOfBirth: "1990-12-10", CreatedAt: now}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreUpsertAssignment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`insert into user_services`).
		WithArgs("u1", "s1", "admin", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	a := &Assignment{UserID: "u1", ServiceID: "s1", Role: "admin", Enabled: true, CreatedAt: now}
	if err := store.UpsertAssignment(context.Background(), a); err != nil {
		t.Fatalf("UpsertAssignment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreListServices(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`select id, coalesce\(organization_id,''\), name, description, created_at from services`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "created_at"}).
			AddRow("s1", "", "storage", "object storage", now).
			AddRow("s2", "o1", "billing", "", now))

	store := NewPGStore(db)
	services, err := store.ListServices(context.Background())
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 2 || services[0].Name != "storage" || services[1].OrganizationID != "o1" {
		t.Fatalf("unexpected services %+v", services)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
