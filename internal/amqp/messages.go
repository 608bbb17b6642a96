package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entities a change message can refer to.
const (
	EntityTransaction = "transaction"
	EntityWallet      = "wallet"
	EntityCategory    = "category"
	EntityBudget      = "budget"
)

// ChangeMessage announces that stored data changed. It carries only what a
// consumer needs to decide what to recompute; consumers re-read the rows.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	Operation string    `json:"operation"`
	EntityID  string    `json:"entity_id,omitempty"`
	WalletID  string    `json:"wallet_id,omitempty"`
	Months    []string  `json:"months,omitempty"` // YYYY-MM keys affected
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity, operation, entityID string, months ...string) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Entity:    entity,
		Operation: operation,
		EntityID:  entityID,
		Months:    months,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a delivery body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" {
		return nil, fmt.Errorf("change message %q: missing entity", msg.ID)
	}
	return &msg, nil
}
