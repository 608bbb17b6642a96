package http

import (
	"strings"
	"time"

	"finanzas/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// Wire shapes for the domain records. Domain types stay free of JSON tags.
type (
	transactionJSON struct {
		ID            string     `json:"id"`
		Amount        core.Money `json:"amount"`
		Kind          core.Kind  `json:"kind"`
		OccurredAt    time.Time  `json:"occurred_at"`
		Description   string     `json:"description"`
		WalletID      string     `json:"wallet_id,omitempty"`
		WalletLabel   string     `json:"wallet_label"`
		CategoryID    string     `json:"category_id,omitempty"`
		CategoryLabel string     `json:"category_label"`
	}

	walletJSON struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	categoryJSON struct {
		ID   string    `json:"id"`
		Name string    `json:"name"`
		Kind core.Kind `json:"kind,omitempty"`
	}

	budgetJSON struct {
		ID            string     `json:"id"`
		CategoryID    string     `json:"category_id"`
		CategoryLabel string     `json:"category_label"`
		Limit         core.Money `json:"limit"`
		Month         string     `json:"month"`
	}
)

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		Amount:        tx.Amount,
		Kind:          tx.Kind,
		OccurredAt:    tx.OccurredAt,
		Description:   tx.Description,
		WalletID:      tx.WalletID,
		WalletLabel:   tx.WalletLabel,
		CategoryID:    tx.CategoryID,
		CategoryLabel: tx.CategoryLabel,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:            b.ID,
		CategoryID:    b.CategoryID,
		CategoryLabel: b.CategoryLabel,
		Limit:         b.Limit,
		Month:         b.Period.String(),
	}
}
