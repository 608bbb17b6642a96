package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

// TransactionInput is a transaction write request as entered by the user.
type TransactionInput struct {
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Date        string `json:"date"` // YYYY-MM-DD or RFC 3339; empty means now
	Description string `json:"description"`
	WalletID    string `json:"wallet_id"`
	CategoryID  string `json:"category_id"`
}

type WalletInput struct {
	Name string `json:"name"`
}

type CategoryInput struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // optional
}

// TransactionService lists recent activity and performs the simple writes.
type TransactionService struct {
	reader source.Reader
	writer source.Writer
	feed   *ChangeFeed
	cfg    Config
	logger *log.Logger
}

func NewTransactionService(reader source.Reader, writer source.Writer, feed *ChangeFeed, cfg Config, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		reader: reader,
		writer: writer,
		feed:   feed,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Recent returns the newest transactions, limit clamped to
// [1, MaxRecentLimit].
func (s *TransactionService) Recent(ctx context.Context, walletID string, limit int) ([]core.Transaction, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	txs, err := s.reader.ListTransactions(ctx, source.TransactionFilter{WalletID: walletID, Limit: limit})
	if err != nil {
		return nil, wrap("list transactions", err)
	}
	return source.TransactionFilter{Limit: limit}.Apply(txs), nil
}

func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	if s.writer == nil {
		return core.Transaction{}, source.ErrReadOnly
	}
	tx, err := in.parse(s.cfg)
	if err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.writer.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.feed.Publish(ctx, Change{
		Entity:    amqp.EntityTransaction,
		Operation: log.OpCreate,
		EntityID:  saved.ID,
		WalletID:  saved.WalletID,
		Months:    []core.MonthKey{core.MonthOf(saved.OccurredAt.In(s.cfg.location()))},
	})
	return saved, nil
}

func (in TransactionInput) parse(cfg Config) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount: %w", ErrInvalidInput, err)
	}
	kind, ok := core.ParseKind(in.Kind)
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidInput, core.ErrInvalidKind)
	}

	occurred := cfg.now()
	if strings.TrimSpace(in.Date) != "" {
		occurred, err = rows.ParseTime(in.Date, cfg.location())
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidInput, core.ErrInvalidDate)
		}
	}

	tx := core.Transaction{
		Amount:      amount,
		Kind:        kind,
		OccurredAt:  occurred.Truncate(time.Millisecond),
		Description: strings.TrimSpace(in.Description),
		WalletID:    strings.TrimSpace(in.WalletID),
		CategoryID:  strings.TrimSpace(in.CategoryID),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return tx, nil
}

func (s *TransactionService) CreateWallet(ctx context.Context, in WalletInput) (core.Wallet, error) {
	if s.writer == nil {
		return core.Wallet{}, source.ErrReadOnly
	}
	w := core.Wallet{Name: strings.TrimSpace(in.Name)}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	saved, err := s.writer.CreateWallet(ctx, w)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	s.feed.Publish(ctx, Change{Entity: amqp.EntityWallet, Operation: log.OpCreate, EntityID: saved.ID, WalletID: saved.ID})
	return saved, nil
}

func (s *TransactionService) DeleteWallet(ctx context.Context, id string) error {
	if s.writer == nil {
		return source.ErrReadOnly
	}
	if strings.TrimSpace(id) == "" || id == core.GlobalWalletID {
		return fmt.Errorf("%w: wallet id", ErrInvalidInput)
	}
	if err := s.writer.DeleteWallet(ctx, id); err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	s.logger.InfoContext(ctx, "wallet deleted", log.FieldOperation, log.OpDelete, log.FieldWalletID, id)
	s.feed.Publish(ctx, Change{Entity: amqp.EntityWallet, Operation: log.OpDelete, EntityID: id, WalletID: id})
	return nil
}

func (s *TransactionService) CreateCategory(ctx context.Context, in CategoryInput) (core.Category, error) {
	if s.writer == nil {
		return core.Category{}, source.ErrReadOnly
	}
	c := core.Category{Name: strings.TrimSpace(in.Name)}
	if strings.TrimSpace(in.Kind) != "" {
		kind, ok := core.ParseKind(in.Kind)
		if !ok {
			return core.Category{}, fmt.Errorf("%w: %w", ErrInvalidInput, core.ErrInvalidKind)
		}
		c.Kind = kind
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	saved, err := s.writer.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.feed.Publish(ctx, Change{Entity: amqp.EntityCategory, Operation: log.OpCreate, EntityID: saved.ID})
	return saved, nil
}
