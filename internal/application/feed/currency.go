package feed

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

var ErrInvalidCurrency = errors.New("feed: invalid ISO 4217 currency code")

// CurrencyPolicy decides which price listings may be used for deliveries.
// A strict policy accepts only the configured codes; a relaxed one accepts
// any valid ISO 4217 code.
type CurrencyPolicy struct {
	allowed map[string]struct{}
	strict  bool
}

// NewCurrencyPolicy validates codes and builds a policy
func NewCurrencyPolicy(codes []string, strict bool) (*CurrencyPolicy, error) {
	allowed := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
		allowed[unit.String()] = struct{}{}
	}
	if strict && len(allowed) == 0 {
		return nil, fmt.Errorf("%w: no currencies configured", ErrInvalidCurrency)
	}
	return &CurrencyPolicy{allowed: allowed, strict: strict}, nil
}

// Strict reports whether only configured currencies are accepted
func (p *CurrencyPolicy) Strict() bool {
	return p.strict
}

// Accepts reports whether prices in code may be used
func (p *CurrencyPolicy) Accepts(code string) bool {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return false
	}
	if !p.strict {
		return true
	}
	_, ok := p.allowed[unit.String()]
	return ok
}
