/*
sku.go - Lens variant identity

PURPOSE:
  A lens SKU is the pair (sphere, cylinder) of optical values. The stock
  sheet keys rows by their decimal-COMMA string form ("-2,00", "-0,50")
  because that is the backing store's locale; the same optical value can
  arrive from the UI with a dot or a comma, with or without trailing zeros.
  NormalizeOptical folds all spellings onto one canonical key so lookups
  never miss on formatting.

  OD (right eye) and OE (left eye) are independent SKU instances within a
  single reservation - the same physical variant can appear on both sides.
*/
package stock

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SKU identifies a lens variant. Both fields are canonical decimal-comma
// strings with two fractional digits.
type SKU struct {
	Sphere   string
	Cylinder string
}

func (s SKU) String() string { return s.Sphere + "/" + s.Cylinder }

// NewSKU normalizes raw sphere/cylinder inputs into a canonical SKU.
func NewSKU(sphere, cylinder string) (SKU, error) {
	sph, err := NormalizeOptical(sphere)
	if err != nil {
		return SKU{}, fmt.Errorf("sphere: %w", err)
	}
	cyl, err := NormalizeOptical(cylinder)
	if err != nil {
		return SKU{}, fmt.Errorf("cylinder: %w", err)
	}
	return SKU{Sphere: sph, Cylinder: cyl}, nil
}

// NormalizeOptical parses an optical value written with either decimal
// separator and renders it as a fixed two-decimal comma string:
// "-2"  -> "-2,00"
// "-2.0" -> "-2,00"
// "-2,00" -> "-2,00"
func NormalizeOptical(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty optical value")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", "."))
	if err != nil {
		return "", fmt.Errorf("invalid optical value %q: %w", raw, err)
	}
	return strings.ReplaceAll(d.StringFixed(2), ".", ","), nil
}

// Line is a SKU with a requested quantity, one eye's worth of a request.
type Line struct {
	SKU SKU
	Qty int
}
