// Package pricing implements the price decision engine: strategy-based
// candidate computation, the custom formula parser, and the strategy catalog.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// FormulaKind enumerates the closed set of supported custom formula shapes.
// Free-form expressions are deliberately not supported; formula text is
// parsed into one of these forms and never evaluated as code.
type FormulaKind int

const (
	// FormulaMin is "min(competitors)".
	FormulaMin FormulaKind = iota
	// FormulaMinMinus is "min(competitors) - K".
	FormulaMinMinus
	// FormulaMinTimes is "min(competitors) * f".
	FormulaMinTimes
)

// Formula is a parsed custom pricing formula.
type Formula struct {
	Kind    FormulaKind
	Operand float64
}

// DefaultFormula is substituted when a custom formula cannot be parsed:
// 5% under the lowest competitor. The silent substitution is inherited
// behavior; callers are expected to log when they fall back to it.
var DefaultFormula = Formula{Kind: FormulaMinTimes, Operand: 0.95}

// Apply computes the candidate price from the lowest competitor price.
func (f Formula) Apply(minCompetitorPrice float64) float64 {
	switch f.Kind {
	case FormulaMinMinus:
		return minCompetitorPrice - f.Operand
	case FormulaMinTimes:
		return minCompetitorPrice * f.Operand
	default:
		return minCompetitorPrice
	}
}

// String renders the formula in its canonical text form.
func (f Formula) String() string {
	switch f.Kind {
	case FormulaMinMinus:
		return fmt.Sprintf("min(competitors) - %s", trimFloat(f.Operand))
	case FormulaMinTimes:
		return fmt.Sprintf("min(competitors) * %s", trimFloat(f.Operand))
	default:
		return "min(competitors)"
	}
}

const minToken = "min(competitors)"

// ParseFormula parses custom formula text into a Formula. It accepts only
// the closed forms "min(competitors)", "min(competitors) - K" and
// "min(competitors) * f" (whitespace and case insensitive). Anything else
// returns domain.ErrUnknownFormula; the caller decides whether to fall back.
func ParseFormula(text string) (Formula, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if s == "" {
		return Formula{}, fmt.Errorf("pricing: empty formula: %w", domain.ErrUnknownFormula)
	}
	if s == minToken {
		return Formula{Kind: FormulaMin}, nil
	}
	if !strings.HasPrefix(s, minToken) {
		return Formula{}, fmt.Errorf("pricing: formula %q: %w", text, domain.ErrUnknownFormula)
	}

	rest := s[len(minToken):]
	if len(rest) < 2 {
		return Formula{}, fmt.Errorf("pricing: formula %q: %w", text, domain.ErrUnknownFormula)
	}

	op := rest[0]
	operand, err := strconv.ParseFloat(rest[1:], 64)
	if err != nil || operand < 0 {
		return Formula{}, fmt.Errorf("pricing: formula %q: %w", text, domain.ErrUnknownFormula)
	}

	switch op {
	case '-':
		return Formula{Kind: FormulaMinMinus, Operand: operand}, nil
	case '*':
		return Formula{Kind: FormulaMinTimes, Operand: operand}, nil
	default:
		return Formula{}, fmt.Errorf("pricing: formula %q: %w", text, domain.ErrUnknownFormula)
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
