package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/internal/domain/money"
)

func TestFromDecimal_ConvierteAUnidadesMenores(t *testing.T) {
	m, err := money.FromDecimal(decimal.RequireFromString("250.50"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(25050), m.Amount)
	assert.Equal(t, "USD", m.Currency)

	yen, err := money.FromDecimal(decimal.RequireFromString("1500"), "jpy")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), yen.Amount, "JPY no tiene decimales")
	assert.Equal(t, "JPY", yen.Currency)
}

func TestFromDecimal_RechazaPrecisionExtra(t *testing.T) {
	_, err := money.FromDecimal(decimal.RequireFromString("10.005"), "USD")
	assert.ErrorIs(t, err, money.ErrPrecision)

	_, err = money.FromDecimal(decimal.RequireFromString("10.5"), "JPY")
	assert.ErrorIs(t, err, money.ErrPrecision)

	// ceros a la derecha no agregan precisión
	m, err := money.FromDecimal(decimal.RequireFromString("10.500"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1050), m.Amount)
}

func TestAritmeticaExacta(t *testing.T) {
	open := money.MustParse("500.00", "USD")
	sale := money.MustParse("250.50", "USD")
	expense := money.MustParse("-40.00", "USD")

	total := money.Sum("USD", open, sale, expense)
	assert.Equal(t, "710.50", total.Decimal().StringFixed(2))
	assert.Equal(t, "710.50 USD", total.String())

	// 0.1 + 0.2 exacto (el clásico error de float)
	a := money.MustParse("0.10", "USD").Add(money.MustParse("0.20", "USD"))
	assert.True(t, a.Equal(money.MustParse("0.30", "USD")))

	assert.True(t, expense.IsNegative())
	assert.Equal(t, int64(4000), expense.Abs().Amount)
	assert.Equal(t, -1, expense.Cmp(sale))
	assert.Equal(t, 0, sale.Sub(sale).Cmp(money.Zero("USD")))
}

func TestMonedasDistintas_Panic(t *testing.T) {
	assert.Panics(t, func() {
		money.New(100, "USD").Add(money.New(100, "COP"))
	})
}

func TestPercent_RedondeaMitadLejosDeCero(t *testing.T) {
	diff := money.MustParse("-15.50", "USD")
	base := money.MustParse("710.50", "USD")
	pct, ok := diff.Percent(base)
	require.True(t, ok)
	assert.Equal(t, "-2.18", pct.StringFixed(2))

	_, ok = diff.Percent(money.Zero("USD"))
	assert.False(t, ok, "base cero no tiene porcentaje")
}

func TestNormalizeCurrency(t *testing.T) {
	code, err := money.NormalizeCurrency("cop")
	require.NoError(t, err)
	assert.Equal(t, "COP", code)

	_, err = money.NormalizeCurrency("XXXX")
	assert.ErrorIs(t, err, money.ErrUnknownCurrency)
}

func TestFromDecimal_RangoDeNumeric20_4(t *testing.T) {
	top, err := money.FromDecimal(decimal.RequireFromString("9999999999999999.99"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(999999999999999999), top.Amount)

	_, err = money.FromDecimal(decimal.RequireFromString("10000000000000000"), "USD")
	assert.ErrorIs(t, err, money.ErrOverflow)

	_, err = money.FromDecimal(decimal.RequireFromString("-50000000000000000"), "USD")
	assert.ErrorIs(t, err, money.ErrOverflow)

	assert.Equal(t, int64(10000000000000000), money.Limit("JPY"))
}

func TestAddChecked_NoDesborda(t *testing.T) {
	big := money.MustParse("9999999999999999.00", "USD")

	sum, err := big.AddChecked(money.MustParse("0.99", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "9999999999999999.99", sum.Major())

	_, err = big.AddChecked(money.MustParse("1.00", "USD"))
	assert.ErrorIs(t, err, money.ErrOverflow)

	// dos montos válidos que con suma entera simple darían la vuelta a negativo
	wrap := money.New(5_000_000_000_000_000_000, "USD")
	_, err = wrap.AddChecked(wrap)
	assert.ErrorIs(t, err, money.ErrOverflow)

	_, err = big.Neg().SubChecked(money.MustParse("1.00", "USD"))
	assert.ErrorIs(t, err, money.ErrOverflow)

	diff, err := big.SubChecked(big)
	require.NoError(t, err)
	assert.True(t, diff.IsZero())
}
