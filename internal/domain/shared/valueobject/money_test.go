package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("74.50", USD)
	require.NoError(t, err)
	assert.Equal(t, int64(7450), m.Cents())

	_, err = NewMoneyFromString("not-a-number", USD)
	assert.Error(t, err)
}

func TestNewMoneyFromCents(t *testing.T) {
	m := NewMoneyFromCents(7450, USD)
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(74.50)))
	assert.Equal(t, int64(7450), m.Cents())
}

func TestMoney_Cents_Exact(t *testing.T) {
	// Due-amount math stays in integer cents. 120.00 - 45.50 must land
	// on exactly 7450, never off by one.
	total, err := NewMoneyFromString("120.00", USD)
	require.NoError(t, err)
	paid, err := NewMoneyFromString("45.50", USD)
	require.NoError(t, err)

	due, err := total.Subtract(paid)
	require.NoError(t, err)
	assert.Equal(t, int64(7450), due.Cents())
	assert.Equal(t, int64(12000), total.Cents())
	assert.Equal(t, int64(4550), paid.Cents())
}

func TestMoney_Add(t *testing.T) {
	a := NewMoneyFromCents(1000, USD)
	b := NewMoneyFromCents(250, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Cents())

	_, err = a.Add(NewMoneyFromCents(100, EUR))
	assert.Error(t, err)
}

func TestMoney_Subtract_CurrencyMismatch(t *testing.T) {
	a := NewMoneyFromCents(1000, USD)
	_, err := a.Subtract(NewMoneyFromCents(100, GBP))
	assert.Error(t, err)
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, Zero(USD).IsZero())
	assert.True(t, NewMoneyFromCents(1, USD).IsPositive())
	assert.True(t, NewMoneyFromCents(100, USD).Negate().IsNegative())
}

func TestMoney_Comparisons(t *testing.T) {
	small := NewMoneyFromCents(100, USD)
	large := NewMoneyFromCents(200, USD)

	less, err := small.LessThan(large)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := large.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, greater)

	_, err = small.LessThan(NewMoneyFromCents(100, EUR))
	assert.Error(t, err)

	assert.True(t, small.Equals(NewMoneyFromCents(100, USD)))
	assert.False(t, small.Equals(large))
}

func TestMoney_String(t *testing.T) {
	m := NewMoneyFromCents(7450, USD)
	assert.Equal(t, "74.50 USD", m.String())
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyFromCents(7450, USD)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_ScanValue(t *testing.T) {
	m := NewMoneyFromCents(7450, USD)
	v, err := m.Value()
	require.NoError(t, err)

	var scanned Money
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, int64(7450), scanned.Cents())
	assert.Equal(t, DefaultCurrency, scanned.Currency())

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	assert.Error(t, scanned.Scan(42))
}
