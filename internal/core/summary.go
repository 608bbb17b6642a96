package core

import "time"

// Bucket is one grouped aggregate row: per wallet, per category or per day.
// Buckets are derived on every call and never persisted.
type Bucket struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Kind         Kind    `json:"kind,omitempty"`          // series of a category bucket
	CategoryKind Kind    `json:"category_kind,omitempty"` // declared or inferred category kind
	Total        Money   `json:"total"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`

	// Wallet and day buckets
	Income        Money     `json:"income"`
	Expense       Money     `json:"expense"`
	Balance       Money     `json:"balance"`
	PositiveCount int       `json:"positive_count"`
	NegativeCount int       `json:"negative_count"`
	Date          time.Time `json:"date,omitzero"`
}

// Status classifies budget utilization.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// BudgetAlert is the utilization of one budget for a month.
type BudgetAlert struct {
	BudgetID      string   `json:"budget_id"`
	CategoryID    string   `json:"category_id,omitempty"`
	CategoryLabel string   `json:"category_label"`
	Period        MonthKey `json:"-"`
	Limit         Money    `json:"limit"`
	Spent         Money    `json:"spent"`
	Available     Money    `json:"available"`
	Percentage    float64  `json:"percentage"`
	Status        Status   `json:"status"`
}

// Totals summarizes a set of transactions.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Net     Money `json:"net"`
	Count   int   `json:"count"`
}
