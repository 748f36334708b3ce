package kv

import (
	"context"
	"database/sql"
	"errors"
)

// SQLStore keeps blobs in a single kv_store table. The same type serves
// Postgres (pgx stdlib driver) and SQLite (modernc driver); only the SQL differs.
type SQLStore struct {
	DB *sql.DB
	q  queries
}

type queries struct {
	schema string
	get    string
	set    string
	del    string
}

var postgresQueries = queries{
	schema: `
create table if not exists kv_store (
  key        text primary key,
  value      jsonb not null,
  updated_at timestamptz not null default now()
)`,
	get: `select value from kv_store where key = $1`,
	set: `
insert into kv_store (key, value) values ($1, $2)
on conflict (key) do update
set value = excluded.value, updated_at = now()`,
	del: `delete from kv_store where key = $1`,
}

var sqliteQueries = queries{
	schema: `
create table if not exists kv_store (
  key        text primary key,
  value      blob not null,
  updated_at timestamp not null default current_timestamp
)`,
	get: `select value from kv_store where key = ?`,
	set: `
insert into kv_store (key, value) values (?, ?)
on conflict (key) do update
set value = excluded.value, updated_at = current_timestamp`,
	del: `delete from kv_store where key = ?`,
}

func NewPostgres(db *sql.DB) *SQLStore { return &SQLStore{DB: db, q: postgresQueries} }

func NewSQLite(db *sql.DB) *SQLStore { return &SQLStore{DB: db, q: sqliteQueries} }

// Migrate creates kv_store if it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, s.q.schema)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.DB.QueryRowContext(ctx, s.q.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set upserts the value; updated_at tracks the last write.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, s.q.set, key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, s.q.del, key)
	return err
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }
