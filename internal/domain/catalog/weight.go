package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownWeightUnit = errors.New("catalog: unknown weight unit")
	ErrNegativeWeight    = errors.New("catalog: weight must not be negative")
)

// WeightUnit is the unit a weight value is expressed in
type WeightUnit string

const (
	WeightUnitGram     WeightUnit = "G"
	WeightUnitPound    WeightUnit = "LB"
	WeightUnitOunce    WeightUnit = "OZ"
	WeightUnitKilogram WeightUnit = "KG"
	WeightUnitTonne    WeightUnit = "TONNE"
)

// kilograms per unit
var unitFactors = map[WeightUnit]decimal.Decimal{
	WeightUnitGram:     decimal.New(1, -3),
	WeightUnitPound:    decimal.RequireFromString("0.45359237"),
	WeightUnitOunce:    decimal.RequireFromString("0.028349523125"),
	WeightUnitKilogram: decimal.NewFromInt(1),
	WeightUnitTonne:    decimal.NewFromInt(1000),
}

// IsValid checks if the unit is known
func (u WeightUnit) IsValid() bool {
	_, ok := unitFactors[u]
	return ok
}

// String returns the string representation of WeightUnit
func (u WeightUnit) String() string {
	return string(u)
}

// ParseWeightUnit parses a unit name case-insensitively
func ParseWeightUnit(s string) (WeightUnit, error) {
	u := WeightUnit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownWeightUnit, s)
	}
	return u, nil
}

// Weight is a value with a unit
type Weight struct {
	Unit  WeightUnit      `json:"unit"`
	Value decimal.Decimal `json:"value"`
}

// DefaultWeight is used when neither the variant, the product nor its
// product type carries a weight.
var DefaultWeight = Weight{Unit: WeightUnitKilogram, Value: decimal.New(1, -1)}

// NewWeight creates a weight after validating the unit and the sign
func NewWeight(value decimal.Decimal, unit WeightUnit) (Weight, error) {
	if !unit.IsValid() {
		return Weight{}, fmt.Errorf("%w: %q", ErrUnknownWeightUnit, unit)
	}
	if value.IsNegative() {
		return Weight{}, ErrNegativeWeight
	}
	return Weight{Unit: unit, Value: value}, nil
}

// Kilograms converts the weight to kilograms.
// An unknown unit is treated as kilograms.
func (w Weight) Kilograms() decimal.Decimal {
	factor, ok := unitFactors[w.Unit]
	if !ok {
		return w.Value
	}
	return w.Value.Mul(factor)
}

// String returns e.g. "1.5 KG"
func (w Weight) String() string {
	return w.Value.String() + " " + string(w.Unit)
}

// ProductType carries the weight defaults shared by products of that type
type ProductType struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Weight *Weight `json:"weight,omitempty"`
}

// ResolveWeight picks the first weight present on the variant, the product
// or the product type, falling back to DefaultWeight.
func ResolveWeight(v Variant, p Product) Weight {
	switch {
	case v.Weight != nil:
		return *v.Weight
	case p.Weight != nil:
		return *p.Weight
	case p.ProductType != nil && p.ProductType.Weight != nil:
		return *p.ProductType.Weight
	default:
		return DefaultWeight
	}
}
