package apikey

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Scopes are stored as a JSON
// array in a single column.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const keyColumns = `id, user_id, service_id, role, scopes, hashed_key, revoked, expires_at, created_at`

func (s *PGStore) Create(ctx context.Context, k *Key) error {
	scopes, err := json.Marshal(k.Scopes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into api_keys(`+keyColumns+`) values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		k.ID, k.UserID, k.ServiceID, k.Role, scopes, k.HashedKey, k.Revoked, k.ExpiresAt, k.CreatedAt,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Key, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+keyColumns+` from api_keys where id=$1`, id)
	return scanKey(row)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]*Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+keyColumns+` from api_keys where user_id=$1 order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKeys(rows)
}

func (s *PGStore) ListActive(ctx context.Context) ([]*Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+keyColumns+` from api_keys where revoked=false`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKeys(rows)
}

func (s *PGStore) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update api_keys set revoked=true where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*Key, error) {
	var (
		k      Key
		scopes []byte
	)
	if err := row.Scan(&k.ID, &k.UserID, &k.ServiceID, &k.Role, &scopes, &k.HashedKey, &k.Revoked, &k.ExpiresAt, &k.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &k.Scopes); err != nil {
			return nil, fmt.Errorf("apikey: decode scopes: %w", err)
		}
	}
	return &k, nil
}

func scanKeys(rows *sql.Rows) ([]*Key, error) {
	var res []*Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}
