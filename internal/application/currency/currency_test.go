package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

type mockRateRepo struct {
	rates map[string]float64
	saves int
}

func key(currency string, month time.Time) string {
	return currency + "@" + month.Format("2006-01")
}

func (m *mockRateRepo) Get(_ context.Context, currency string, month time.Time) (float64, bool, error) {
	v, ok := m.rates[key(currency, month)]
	return v, ok, nil
}

func (m *mockRateRepo) SaveMonth(_ context.Context, month time.Time, perEuro map[string]float64) error {
	m.saves++
	for c, v := range perEuro {
		m.rates[key(c, month)] = v
	}
	return nil
}

type mockSource struct {
	calls int
	rates map[string]float64
	err   error
}

func (m *mockSource) MonthlyRates(context.Context, time.Time) (map[string]float64, error) {
	m.calls++
	return m.rates, m.err
}

type fixedRate struct {
	rate float64
	ok   bool
	err  error
	last time.Time
}

func (f *fixedRate) Rate(_ context.Context, _ string, date time.Time) (float64, bool, error) {
	f.last = date
	return f.rate, f.ok, f.err
}

var march = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestConverter_Convert(t *testing.T) {
	rates := &fixedRate{rate: 0.9213, ok: true}
	c := NewConverter(rates, "EUR", zap.NewNop(), WithClock(func() time.Time { return march }))

	got := c.Convert(context.Background(), entity.Money{Amount: 100, Currency: "USD"}, march.AddDate(0, 0, -3))
	require.NotNil(t, got.ExchangeRate)
	assert.Equal(t, 92.13, got.ExchangeRate.Amount)
	assert.Equal(t, 0.9213, got.ExchangeRate.Rate)
	assert.Empty(t, got.Warning)
}

func TestConverter_BaseCurrencyAndZero(t *testing.T) {
	rates := &fixedRate{rate: 2, ok: true}
	c := NewConverter(rates, "EUR", zap.NewNop())

	got := c.Convert(context.Background(), entity.Money{Amount: 10, Currency: "EUR", ExchangeRate: &entity.ExchangeRate{Amount: 1}}, march)
	assert.Nil(t, got.ExchangeRate)

	got = c.Convert(context.Background(), entity.Money{Amount: 0, Currency: "USD"}, march)
	assert.Nil(t, got.ExchangeRate)
	assert.True(t, rates.last.IsZero(), "no lookup for zero amounts")
}

func TestConverter_ClampsFutureDates(t *testing.T) {
	rates := &fixedRate{rate: 1.1, ok: true}
	c := NewConverter(rates, "EUR", zap.NewNop(), WithClock(func() time.Time { return march }))

	got := c.Convert(context.Background(), entity.Money{Amount: 10, Currency: "CHF"}, march.AddDate(1, 0, 0))
	require.NotNil(t, got.ExchangeRate)
	assert.Equal(t, march, got.ExchangeRate.Date)
	assert.Equal(t, march, rates.last)
}

func TestConverter_MissingRateIsWarning(t *testing.T) {
	for _, rates := range []*fixedRate{{ok: false}, {err: errors.New("offline")}} {
		c := NewConverter(rates, "EUR", zap.NewNop(), WithClock(func() time.Time { return march }))
		got := c.Convert(context.Background(), entity.Money{Amount: 10, Currency: "XYZ"}, march)
		assert.Nil(t, got.ExchangeRate)
		assert.Contains(t, got.Warning, "XYZ")
		assert.Equal(t, 10.0, got.Amount)
	}
}

func TestMonthlyRateProvider_FetchesOnceAndCaches(t *testing.T) {
	repo := &mockRateRepo{rates: map[string]float64{}}
	source := &mockSource{rates: map[string]float64{"USD": 1.0857, "CHF": 0.9531}}
	p := NewMonthlyRateProvider(repo, source, "EUR", zap.NewNop())
	ctx := context.Background()

	rate, ok, err := p.Rate(ctx, "USD", march)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1/1.0857, rate, 1e-12)

	_, ok, err = p.Rate(ctx, "CHF", march.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = p.Rate(ctx, "JPY", march)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, repo.saves)
}

func TestMonthlyRateProvider_CrossRate(t *testing.T) {
	repo := &mockRateRepo{rates: map[string]float64{
		key("USD", MonthOf(march)): 1.1,
		key("CHF", MonthOf(march)): 0.95,
	}}
	p := NewMonthlyRateProvider(repo, nil, "CHF", zap.NewNop())

	rate, ok, err := p.Rate(context.Background(), "USD", march)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.95/1.1, rate, 1e-12)

	rate, ok, err = p.Rate(context.Background(), "EUR", march)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.95, rate, 1e-12)
}

func TestMonthlyRateProvider_SourceError(t *testing.T) {
	repo := &mockRateRepo{rates: map[string]float64{}}
	p := NewMonthlyRateProvider(repo, &mockSource{err: errors.New("503")}, "EUR", zap.NewNop())
	_, ok, err := p.Rate(context.Background(), "USD", march)
	assert.Error(t, err)
	assert.False(t, ok)
}
