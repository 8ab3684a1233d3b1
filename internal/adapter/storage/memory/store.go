// Package memory is an in-process implementation of the ledger storage ports.
// A Store serializes writers behind one mutex, and a transaction keeps an
// undo log so Rollback restores every change it made.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrForeignTx is returned when a repository receives a pgx.Tx it did not open.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

type walletKey struct {
	userID uuid.UUID
	code   string
}

type idemKey struct {
	userID uuid.UUID
	key    string
}

// Store holds wallets, transactions and audit entries in memory.
type Store struct {
	mu      sync.RWMutex
	wallets map[walletKey]domain.Wallet
	txns    []domain.Transaction
	idem    map[idemKey]int
	audit   []domain.AuditLog
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		wallets: make(map[walletKey]domain.Wallet),
		idem:    make(map[idemKey]int),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Begin implements ports.DBTransactor. The returned transaction holds the
// store's write lock until Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Wallets returns the store's ports.WalletRepository.
func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

// Transactions returns the store's ports.TransactionRepository.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Audit returns the store's ports.AuditRepository.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// write runs fn with the write lock held. Inside a transaction the lock is
// already owned by tx and fn's undo callbacks are kept for Rollback.
func (s *Store) write(tx pgx.Tx, fn func(onUndo func(func())) error) error {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(func(func()) {})
	}

	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return ErrForeignTx
	}
	if mt.done {
		return pgx.ErrTxClosed
	}
	return fn(func(undo func()) { mt.undo = append(mt.undo, undo) })
}

// memTx satisfies pgx.Tx for the methods the services use. The embedded
// interface is nil; any other method panics.
type memTx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}
