package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const walletColumns = "id, user_id, currency_type, currency_code, balance, version, created_at, updated_at"

// pgUniqueViolation is the SQLSTATE raised on a unique constraint conflict.
const pgUniqueViolation = "23505"

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// TryIncrement applies delta to the wallet in a single conditional UPDATE.
// With requireFunds the row only matches when the resulting balance stays
// non-negative, so the check and the write cannot interleave with another
// writer. No matching row yields (nil, nil).
func (r *WalletRepo) TryIncrement(ctx context.Context, tx pgx.Tx, userID uuid.UUID, code string, delta decimal.Decimal, requireFunds bool) (*domain.Wallet, error) {
	query := `UPDATE wallets SET balance = balance + $3, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND currency_code = $2`
	if requireFunds {
		query += ` AND balance + $3 >= 0`
	}
	query += ` RETURNING ` + walletColumns

	w, err := scanWallet(conn(r.pool, tx).QueryRow(ctx, query, userID, code, delta))
	if err != nil {
		return nil, fmt.Errorf("increment wallet balance: %w", err)
	}
	return w, nil
}

// CreateIfAbsent inserts a wallet. ON CONFLICT DO NOTHING keeps the enclosing
// transaction usable when another writer created the same wallet first.
func (r *WalletRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, currency_code) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := conn(r.pool, tx).QueryRow(ctx, query,
		w.ID, w.UserID, w.CurrencyType, w.CurrencyCode,
		w.Balance, w.Version, w.CreatedAt, w.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWalletExists
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrWalletExists
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserAndCode fetches a wallet by owner and currency code (non-locking read).
func (r *WalletRepo) GetByUserAndCode(ctx context.Context, userID uuid.UUID, code string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency_code = $2`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID, code))
	if err != nil {
		return nil, fmt.Errorf("get wallet by user and code: %w", err)
	}
	return w, nil
}

// ListByUser returns every wallet owned by userID ordered by currency code.
func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY currency_type, currency_code`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by user: %w", err)
	}
	defer rows.Close()

	return collectWallets(rows)
}

// List fetches all wallets with optional currency type filter and pagination.
func (r *WalletRepo) List(ctx context.Context, params ports.WalletListParams) ([]domain.Wallet, int64, error) {
	countQ := psql.Select("COUNT(*)").From("wallets")
	dataQ := psql.Select(walletColumns).From("wallets")
	if params.CurrencyType != nil {
		countQ = countQ.Where("currency_type = ?", *params.CurrencyType)
		dataQ = dataQ.Where("currency_type = ?", *params.CurrencyType)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build wallet count query: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallets: %w", err)
	}

	dataSQL, dataArgs, err := dataQ.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(params.PageSize)).
		Offset(pageOffset(params.Page, params.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build wallet list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets, err := collectWallets(rows)
	if err != nil {
		return nil, 0, err
	}
	return wallets, total, nil
}

// scanWallet scans a single row; pgx.ErrNoRows maps to (nil, nil).
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.CurrencyType, &w.CurrencyCode,
		&w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func collectWallets(rows pgx.Rows) ([]domain.Wallet, error) {
	wallets := []domain.Wallet{}
	for rows.Next() {
		w := domain.Wallet{}
		err := rows.Scan(
			&w.ID, &w.UserID, &w.CurrencyType, &w.CurrencyCode,
			&w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}
