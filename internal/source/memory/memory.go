package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

// Seed is the on-disk layout of a memory store: one array of raw rows per
// table.
type Seed struct {
	Billeteras    []rows.WalletRow      `json:"billeteras"`
	Categorias    []rows.CategoryRow    `json:"categorias"`
	Transacciones []rows.TransactionRow `json:"transacciones"`
	Presupuestos  []rows.BudgetRow      `json:"presupuestos"`
}

// Store is an in-process backend, used for local runs and tests.
type Store struct {
	mu      sync.RWMutex
	wallets []core.Wallet
	cats    []core.Category
	txs     []core.Transaction
	budgets []core.Budget
}

var (
	_ source.Reader = (*Store)(nil)
	_ source.Writer = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// NewFromSeed normalizes seed rows with n. Malformed rows are dropped.
func NewFromSeed(seed Seed, n rows.Normalizer) *Store {
	s := &Store{
		wallets: n.Wallets(seed.Billeteras),
		cats:    n.Categories(seed.Categorias),
		txs:     n.Transactions(seed.Transacciones),
		budgets: n.Budgets(seed.Presupuestos),
	}
	for i := range s.txs {
		s.txs[i] = s.resolve(s.txs[i])
	}
	for i := range s.budgets {
		s.budgets[i] = s.resolveBudget(s.budgets[i])
	}
	return s
}

// NewFromFile loads a JSON seed. A missing path yields an empty store.
func NewFromFile(path string, n rows.Normalizer) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return NewFromSeed(seed, n), nil
}

func (s *Store) ListTransactions(_ context.Context, f source.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.txs), nil
}

func (s *Store) ListWallets(_ context.Context) ([]core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Wallet(nil), s.wallets...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx = s.resolve(tx)
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) CreateWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.Name = strings.TrimSpace(w.Name)
	s.wallets = append(s.wallets, w)
	return w, nil
}

func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, w := range s.wallets {
		if w.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return source.ErrNotFound
	}
	for _, tx := range s.txs {
		if tx.WalletID == id {
			return source.ErrWalletInUse
		}
	}
	s.wallets = append(s.wallets[:idx], s.wallets[idx+1:]...)
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b = s.resolveBudget(b)
	for i, existing := range s.budgets {
		if existing.CategoryID == b.CategoryID && existing.Period == b.Period {
			b.ID = existing.ID
			s.budgets[i] = b
			return b, nil
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.budgets = append(s.budgets, b)
	return b, nil
}

// resolve fills wallet and category labels from the store's own records.
// Callers hold the lock.
func (s *Store) resolve(tx core.Transaction) core.Transaction {
	for _, w := range s.wallets {
		if w.ID == tx.WalletID && tx.WalletID != "" {
			tx.WalletLabel = w.Name
		}
	}
	if tx.CategoryLabel == "" {
		tx.CategoryLabel = core.UncategorizedLabel
	}
	for _, c := range s.cats {
		if c.ID == tx.CategoryID && tx.CategoryID != "" {
			tx.CategoryLabel = c.Name
			tx.CategoryKind = c.Kind
		}
	}
	return tx
}

func (s *Store) resolveBudget(b core.Budget) core.Budget {
	if b.CategoryLabel == "" {
		b.CategoryLabel = core.UncategorizedLabel
	}
	for _, c := range s.cats {
		if c.ID == b.CategoryID {
			b.CategoryLabel = c.Name
		}
	}
	return b
}
