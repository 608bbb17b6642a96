package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	Income  Kind = "ingreso"
	Expense Kind = "gasto"
)

// Placeholder labels used when a joined record is missing or blank.
const (
	UncategorizedLabel = "Uncategorized"
	UnnamedLabel       = "Unnamed"
	NoWalletLabel      = "No wallet"
)

// GlobalWalletID selects every wallet when used as a filter.
const GlobalWalletID = "global"

type (
	// Kind is the direction of a transaction or the declared type of a category.
	// The zero value means unset.
	Kind string

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID            string
		Amount        Money
		Kind          Kind
		OccurredAt    time.Time
		Description   string
		WalletID      string // "" when the transaction has no wallet
		WalletLabel   string
		CategoryID    string // "" when uncategorized
		CategoryLabel string
		CategoryKind  Kind // declared kind of the joined category, may be unset
	}

	Wallet struct {
		ID   string
		Name string
	}

	Category struct {
		ID   string
		Name string
		Kind Kind
	}

	Budget struct {
		ID            string
		CategoryID    string
		CategoryLabel string
		Limit         Money
		Period        MonthKey // zero value for undated budgets
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyName     = errors.New("empty name")
	ErrNameTooLong   = errors.New("name too long (max 100 characters)")
)

// ParseKind accepts the stored Spanish values and their English aliases.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ingreso", "income":
		return Income, true
	case "gasto", "expense":
		return Expense, true
	}
	return "", false
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) IsSet() bool {
	return k != ""
}

// Label returns the display name for a category, falling back to the placeholder.
func Label(name, placeholder string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return placeholder
}

func (t Transaction) Validate() error {
	if t.OccurredAt.IsZero() {
		return ErrInvalidDate
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (w Wallet) Validate() error {
	return validateName(w.Name)
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if c.Kind.IsSet() && !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return errors.New("empty category")
	}
	if b.Limit.Cents <= 0 {
		return ErrInvalidAmount
	}
	if b.Period.IsZero() {
		return ErrInvalidMonth
	}
	return b.Period.Validate()
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// SortByOccurredDesc orders transactions newest first. Ties keep input order.
func SortByOccurredDesc(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.After(txs[j].OccurredAt)
	})
}
