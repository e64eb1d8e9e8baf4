package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// Principal identifies any party that owns a ledger account or a resource
// pool: a seller, an individual tutor, or an organization. Principals are
// referenced by id and kind; the directory that stores them lives outside
// this core.
type Principal struct {
	ID   string `json:"principal_id"`
	Kind string `json:"principal_kind"`
}

// Key returns the canonical "kind:id" form used in lock keys and cache keys.
func (p Principal) Key() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.ID)
}

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 2

// RoundMoney rounds an amount to MoneyScale places, half away from zero.
// All amounts handled by this core are non-negative, so this matches the
// round-half-up contract.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

var oneHundred = decimal.NewFromInt(100)
