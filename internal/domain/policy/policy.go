// Package policy implements the distribution policy: the declarative table
// of category weights plus the emergency-fund reserve fraction that governs
// how every deposit is split. A policy is constructed and validated once at
// process start and injected into the allocation engine; there is no
// ambient global table.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPolicy indicates the policy table failed validation. It is
// fatal at startup: the allocation engine must not run with a table whose
// fractions do not account for the whole deposit.
var ErrInvalidPolicy = errors.New("invalid distribution policy")

// epsilon bounds the acceptable deviation of reservePct + sum(weights)
// from exactly 1.
var epsilon = decimal.RequireFromString("0.0001")

var one = decimal.NewFromInt(1)

// CategoryWeight pairs a spending category with its share of the total
// deposit. Weights are fractions of the whole deposit, not of the
// post-reserve remainder.
type CategoryWeight struct {
	Category string
	Weight   decimal.Decimal
}

// Policy is an immutable, validated distribution table.
type Policy struct {
	reservePct decimal.Decimal
	order      []string
	weights    map[string]decimal.Decimal
}

// New validates and builds a policy. The reserve fraction and every weight
// must lie in [0, 1], categories must be unique and non-empty, and
// reservePct + sum(weights) must equal 1 within epsilon.
func New(reservePct decimal.Decimal, weights []CategoryWeight) (*Policy, error) {
	if reservePct.IsNegative() || reservePct.GreaterThan(one) {
		return nil, fmt.Errorf("%w: reserve fraction %s out of range", ErrInvalidPolicy, reservePct)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no categories configured", ErrInvalidPolicy)
	}

	p := &Policy{
		reservePct: reservePct,
		weights:    make(map[string]decimal.Decimal, len(weights)),
	}
	sum := reservePct
	for _, cw := range weights {
		if cw.Category == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidPolicy)
		}
		if _, exists := p.weights[cw.Category]; exists {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidPolicy, cw.Category)
		}
		if cw.Weight.IsNegative() || cw.Weight.GreaterThan(one) {
			return nil, fmt.Errorf("%w: weight %s for %q out of range", ErrInvalidPolicy, cw.Weight, cw.Category)
		}
		p.order = append(p.order, cw.Category)
		p.weights[cw.Category] = cw.Weight
		sum = sum.Add(cw.Weight)
	}

	if sum.Sub(one).Abs().GreaterThan(epsilon) {
		return nil, fmt.Errorf("%w: reserve and weights sum to %s, want 1", ErrInvalidPolicy, sum)
	}

	return p, nil
}

// ReservePct returns the emergency-fund fraction.
func (p *Policy) ReservePct() decimal.Decimal { return p.reservePct }

// Categories returns the configured category order.
func (p *Policy) Categories() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Weight returns the configured fraction for a category, zero if unknown.
func (p *Policy) Weight(category string) decimal.Decimal {
	return p.weights[category]
}

// Leg is one category's share of a split.
type Leg struct {
	Category string
	Amount   int64
}

// Allocation is the outcome of splitting one deposit.
type Allocation struct {
	Reserve  int64 // Reserve share including any folded rounding residual
	Residual int64 // Rounding drift folded into the reserve, can be negative
	Legs     []Leg // In configured category order; zero amounts included
}

// Total returns the sum of reserve and all legs, which always equals the
// split amount exactly.
func (a Allocation) Total() int64 {
	total := a.Reserve
	for _, leg := range a.Legs {
		total += leg.Amount
	}
	return total
}

// Split divides amount (minor units) per the table. Each share is the
// rounded product of the total amount and its fraction; whatever rounding
// drift remains is folded into the reserve so the shares always sum to
// exactly the amount, never silently dropped or invented.
func (p *Policy) Split(amount int64) Allocation {
	total := decimal.NewFromInt(amount)

	alloc := Allocation{
		Reserve: total.Mul(p.reservePct).Round(0).IntPart(),
		Legs:    make([]Leg, 0, len(p.order)),
	}
	allocated := alloc.Reserve
	for _, category := range p.order {
		share := total.Mul(p.weights[category]).Round(0).IntPart()
		alloc.Legs = append(alloc.Legs, Leg{Category: category, Amount: share})
		allocated += share
	}

	alloc.Residual = amount - allocated
	alloc.Reserve += alloc.Residual
	return alloc
}

// ParseWeights parses a "Category:fraction,Category:fraction" table, the
// form the weights take in configuration.
func ParseWeights(s string) ([]CategoryWeight, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty weights table", ErrInvalidPolicy)
	}
	var weights []CategoryWeight
	for _, pair := range strings.Split(s, ",") {
		name, frac, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("%w: malformed weight entry %q", ErrInvalidPolicy, pair)
		}
		w, err := decimal.NewFromString(strings.TrimSpace(frac))
		if err != nil {
			return nil, fmt.Errorf("%w: weight for %q: %v", ErrInvalidPolicy, strings.TrimSpace(name), err)
		}
		weights = append(weights, CategoryWeight{Category: strings.TrimSpace(name), Weight: w})
	}
	return weights, nil
}
