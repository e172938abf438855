// Package pricing derives the Murabaha markup from a retailer's
// creditworthiness score and the chosen repayment term.
//
// The same function serves the advisory preview quote and the authoritative
// commit at link time, so the two can never drift.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrScoreOutOfRange   = errors.New("amana score must be between 0 and 100")
	ErrInvalidTerm       = errors.New("repayment term must be 3, 7 or 14 days")
	ErrNegativePrincipal = errors.New("principal must not be negative")
)

// floorPercentage is the hard minimum markup regardless of score and term.
var floorPercentage = decimal.NewFromInt(4)

// Quote is the pricing outcome for one principal/score/term combination.
type Quote struct {
	Percentage decimal.Decimal `json:"markup_percentage"`
	Amount     decimal.Decimal `json:"markup_amount"`
	Total      decimal.Decimal `json:"total_retailer_cost"`
}

// basePercentage maps the score band to a base markup percentage.
func basePercentage(score int) decimal.Decimal {
	switch {
	case score >= 80:
		return decimal.NewFromInt(5)
	case score >= 60:
		return decimal.NewFromInt(8)
	case score >= 40:
		return decimal.NewFromInt(12)
	default:
		return decimal.NewFromInt(15)
	}
}

// termMultiplier discounts the markup for shorter repayment terms.
func termMultiplier(termDays int) decimal.Decimal {
	switch {
	case termDays <= 3:
		return decimal.NewFromFloat(0.5)
	case termDays <= 7:
		return decimal.NewFromFloat(0.75)
	default:
		return decimal.NewFromInt(1)
	}
}

// Price computes the markup for a principal. Pure: same inputs always yield
// the same outputs. Full precision is kept internally; any rounding belongs
// to presentation, never to storage.
func Price(score int, termDays int, principal decimal.Decimal) (Quote, error) {
	if score < 0 || score > 100 {
		return Quote{}, fmt.Errorf("%w: got %d", ErrScoreOutOfRange, score)
	}
	if termDays != 3 && termDays != 7 && termDays != 14 {
		return Quote{}, fmt.Errorf("%w: got %d", ErrInvalidTerm, termDays)
	}
	if principal.IsNegative() {
		return Quote{}, ErrNegativePrincipal
	}

	percentage := basePercentage(score).Mul(termMultiplier(termDays))
	if percentage.LessThan(floorPercentage) {
		percentage = floorPercentage
	}

	amount := principal.Mul(percentage).Div(decimal.NewFromInt(100))
	return Quote{
		Percentage: percentage,
		Amount:     amount,
		Total:      principal.Add(amount),
	}, nil
}
