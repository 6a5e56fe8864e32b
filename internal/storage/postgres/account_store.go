package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage"
)

// AccountStore implements storage.AccountStore using the users table.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

var _ storage.AccountStore = (*AccountStore)(nil)

const insertAccountSQL = `
	INSERT INTO users (login_hash, server_hash, country_hash, currency, enable)
	VALUES ($1, $2, $3, $4, $5)
`

// Insert adds a new account. Returns ErrDuplicateKey if (login, server) exists.
func (s *AccountStore) Insert(ctx context.Context, a *domain.Account) error {
	_, err := s.pool.Exec(ctx, insertAccountSQL,
		a.LoginHash, a.ServerHash, a.CountryHash, a.Currency, enableFlag(a.Enable))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// InsertBulk adds multiple accounts atomically. Fails entire batch on any duplicate.
func (s *AccountStore) InsertBulk(ctx context.Context, accounts []*domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range accounts {
		_, err := tx.Exec(ctx, insertAccountSQL,
			a.LoginHash, a.ServerHash, a.CountryHash, a.Currency, enableFlag(a.Enable))
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert account in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByKey retrieves an account. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByKey(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	query := `
		SELECT login_hash, server_hash, country_hash, currency, enable
		FROM users
		WHERE login_hash = $1 AND server_hash = $2
	`

	a, err := scanAccount(s.pool.QueryRow(ctx, query, key.LoginHash, key.ServerHash))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account by key: %w", err)
	}
	return a, nil
}

// GetAll retrieves all accounts ordered by (login, server).
func (s *AccountStore) GetAll(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT login_hash, server_hash, country_hash, currency, enable
		FROM users
		ORDER BY login_hash ASC, server_hash ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var result []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return result, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var enable int16
	if err := row.Scan(&a.LoginHash, &a.ServerHash, &a.CountryHash, &a.Currency, &enable); err != nil {
		return nil, err
	}
	a.Enable = enable == 1
	return &a, nil
}
