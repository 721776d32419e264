// Package money implementa montos de punto fijo respaldados por enteros (unidades menores).
//
// Toda la aritmética es entera y exacta. La escala de cada moneda (2 para COP/USD, 0 para JPY)
// sale de la tabla ISO-4217/CLDR de golang.org/x/text/currency.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	ErrUnknownCurrency = errors.New("moneda desconocida")
	ErrPrecision       = errors.New("el monto tiene más decimales de los que admite la moneda")
	ErrOverflow        = errors.New("el monto excede el rango representable")
)

// DefaultScale se usa para monedas que no están en la tabla ISO.
const DefaultScale = 2

// MaxMajorDigits es la cantidad de dígitos enteros admitidos, la misma que NUMERIC(20,4).
const MaxMajorDigits = 16

// Money es un monto en la unidad menor de su moneda (centavos).
type Money struct {
	Amount   int64
	Currency string
}

// New construye un monto a partir de unidades menores.
func New(minor int64, cur string) Money {
	return Money{Amount: minor, Currency: strings.ToUpper(cur)}
}

// Zero devuelve cero en la moneda indicada.
func Zero(cur string) Money { return New(0, cur) }

// NormalizeCurrency valida un código ISO-4217 y lo devuelve en mayúsculas.
func NormalizeCurrency(code string) (string, error) {
	u, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return u.String(), nil
}

// Scale devuelve la cantidad de decimales de la unidad menor de la moneda.
func Scale(cur string) int32 {
	u, err := currency.ParseISO(strings.ToUpper(cur))
	if err != nil {
		return DefaultScale
	}
	scale, _ := currency.Standard.Rounding(u)
	return int32(scale)
}

// FromDecimal convierte un decimal a Money sin redondear: si el valor tiene más
// precisión que la moneda admite devuelve ErrPrecision.
func FromDecimal(d decimal.Decimal, cur string) (Money, error) {
	scale := Scale(cur)
	if !d.Round(scale).Equal(d) {
		return Money{}, fmt.Errorf("%w: %s %s", ErrPrecision, d.String(), cur)
	}
	minor := d.Shift(scale).BigInt()
	if !minor.IsInt64() || !inRange(minor.Int64(), cur) {
		return Money{}, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return New(minor.Int64(), cur), nil
}

// Limit devuelve el máximo valor absoluto (exclusivo) en unidades menores: 10^MaxMajorDigits
// unidades mayores, acotado a int64.
func Limit(cur string) int64 {
	limit := int64(1)
	for i := int32(0); i < MaxMajorDigits+Scale(cur); i++ {
		if limit > math.MaxInt64/10 {
			return math.MaxInt64
		}
		limit *= 10
	}
	return limit
}

func inRange(minor int64, cur string) bool {
	limit := Limit(cur)
	return minor < limit && minor > -limit
}

// Parse interpreta una cadena decimal ("250.50") en la moneda indicada.
func Parse(s, cur string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return FromDecimal(d, cur)
}

// MustParse es Parse para literales conocidos (tests, constantes).
func MustParse(s, cur string) Money {
	m, err := Parse(s, cur)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal devuelve el valor en unidades mayores.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -Scale(m.Currency))
}

// Add suma dos montos. Entra en pánico si las monedas difieren.
func (m Money) Add(o Money) Money {
	m.mustMatch(o)
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

// Sub resta o de m. Entra en pánico si las monedas difieren.
func (m Money) Sub(o Money) Money {
	m.mustMatch(o)
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}
}

// AddChecked suma sin desbordar: devuelve ErrOverflow si el resultado sale del rango admitido.
func (m Money) AddChecked(o Money) (Money, error) {
	m.mustMatch(o)
	sum := m.Amount + o.Amount
	if (o.Amount > 0 && sum < m.Amount) || (o.Amount < 0 && sum > m.Amount) || !inRange(sum, m.Currency) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrOverflow, m, o)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// SubChecked es AddChecked para la resta.
func (m Money) SubChecked(o Money) (Money, error) {
	m.mustMatch(o)
	diff := m.Amount - o.Amount
	if (o.Amount > 0 && diff > m.Amount) || (o.Amount < 0 && diff < m.Amount) || !inRange(diff, m.Currency) {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrOverflow, m, o)
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

func (m Money) Neg() Money { return Money{Amount: -m.Amount, Currency: m.Currency} }

func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

// Cmp compara dos montos de la misma moneda (-1, 0, 1).
func (m Money) Cmp(o Money) int {
	m.mustMatch(o)
	switch {
	case m.Amount < o.Amount:
		return -1
	case m.Amount > o.Amount:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool {
	return m.Amount == o.Amount && m.Currency == o.Currency
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Percent devuelve m/base*100 redondeado a 2 decimales (mitad lejos de cero).
// ok es false cuando base es cero.
func (m Money) Percent(base Money) (pct decimal.Decimal, ok bool) {
	m.mustMatch(base)
	if base.Amount == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(m.Amount).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(base.Amount), 2), true
}

// Major devuelve el monto en unidades mayores con la escala fija de la moneda ("710.50").
func (m Money) Major() string {
	return m.Decimal().StringFixed(Scale(m.Currency))
}

// String formatea "710.50 COP".
func (m Money) String() string {
	return m.Major() + " " + m.Currency
}

// Sum suma montos de una misma moneda; sin valores devuelve cero en cur.
func Sum(cur string, values ...Money) Money {
	total := Zero(cur)
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func (m Money) mustMatch(o Money) {
	if m.Currency != o.Currency {
		panic(fmt.Sprintf("money: monedas distintas: %s != %s", m.Currency, o.Currency))
	}
}
