package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/portfolio-tracker/internal/domain"
	"github.com/aristath/portfolio-tracker/internal/modules/universe"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pos(symbol string, shares int64, avg string) PositionInput {
	return PositionInput{Symbol: symbol, NumberOfShares: shares, AverageSharePrice: d(avg)}
}

func snapshotAB() TickerSnapshot {
	return TickerSnapshot{
		"A": {ID: 1, Symbol: "A", SharePrice: d("110"), DividendYield: d("0.05"), DividendPerShare: d("15.21")},
		"B": {ID: 2, Symbol: "B", SharePrice: d("210"), DividendYield: d("0.10"), DividendPerShare: d("6.69")},
	}
}

func TestTotalValue_IsCostBasis(t *testing.T) {
	positions := []PositionInput{pos("A", 10, "100"), pos("B", 5, "200.50")}

	// 100*10 + 200.50*5
	assert.Equal(t, "2002.5", TotalValue(positions).String())
}

func TestTotalValue_OrderIndependent(t *testing.T) {
	positions := []PositionInput{pos("A", 3, "12.34"), pos("B", 7, "0.99"), pos("C", 1, "1000")}
	reversed := []PositionInput{positions[2], positions[1], positions[0]}
	rotated := []PositionInput{positions[1], positions[2], positions[0]}

	expected := TotalValue(positions)
	assert.True(t, expected.Equal(TotalValue(reversed)))
	assert.True(t, expected.Equal(TotalValue(rotated)))
	assert.Equal(t, "1043.95", expected.String())
}

func TestTotalValue_Empty(t *testing.T) {
	assert.True(t, TotalValue(nil).IsZero())
}

func TestDividendYield_IsUnweightedMean(t *testing.T) {
	for _, shares := range [][2]int64{{1, 1}, {1, 1000}, {500, 3}} {
		positions := []PositionInput{pos("A", shares[0], "1"), pos("B", shares[1], "1")}

		yield, err := DividendYield(positions, snapshotAB())
		require.NoError(t, err)
		assert.Equal(t, "0.075", yield.String())
	}
}

func TestDividendYield_EmptyIsValidationError(t *testing.T) {
	_, err := DividendYield(nil, snapshotAB())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExpectedDividendAmount(t *testing.T) {
	positions := []PositionInput{pos("A", 4, "1"), pos("B", 3, "1")}

	amount, err := ExpectedDividendAmount(positions, snapshotAB())
	require.NoError(t, err)
	assert.Equal(t, "80.91", amount.String())
}

func TestExpectedDividendAmount_UnknownTicker(t *testing.T) {
	_, err := ExpectedDividendAmount([]PositionInput{pos("ZZZ", 1, "1")}, snapshotAB())
	assert.ErrorIs(t, err, domain.ErrTickerNotFound)
	assert.Contains(t, err.Error(), "ZZZ")
}

func TestResult(t *testing.T) {
	positions := []PositionInput{pos("A", 10, "100"), pos("B", 5, "200")}

	result, err := Result(positions, snapshotAB())
	require.NoError(t, err)
	assert.Equal(t, "150", result.String())
}

func TestResult_Loss(t *testing.T) {
	result, err := Result([]PositionInput{pos("A", 2, "120")}, snapshotAB())
	require.NoError(t, err)
	assert.Equal(t, "-20", result.String())
}

func TestComputeMetrics_MatchesIndependentAggregates(t *testing.T) {
	positions := []PositionInput{pos("A", 4, "100"), pos("B", 3, "200"), pos("A", 6, "95.5")}
	snapshot := snapshotAB()

	metrics, err := ComputeMetrics(positions, snapshot)
	require.NoError(t, err)

	dividends, err := ExpectedDividendAmount(positions, snapshot)
	require.NoError(t, err)
	yield, err := DividendYield(positions, snapshot)
	require.NoError(t, err)
	result, err := Result(positions, snapshot)
	require.NoError(t, err)

	assert.True(t, TotalValue(positions).Equal(metrics.TotalValue))
	assert.True(t, dividends.Equal(metrics.ExpectedDividendAmount))
	assert.True(t, yield.Equal(metrics.DividendYield))
	assert.True(t, result.Equal(metrics.Result))
}

func TestComputeMetrics_EmptyIsZero(t *testing.T) {
	metrics, err := ComputeMetrics(nil, nil)
	require.NoError(t, err)
	assert.True(t, metrics.TotalValue.IsZero())
	assert.True(t, metrics.ExpectedDividendAmount.IsZero())
	assert.True(t, metrics.DividendYield.IsZero())
	assert.True(t, metrics.Result.IsZero())
}

type stubLookup struct {
	tickers map[string]universe.Ticker
	err     error
	calls   [][]string
}

func (s *stubLookup) GetBySymbols(ctx context.Context, symbols []string) (map[string]universe.Ticker, error) {
	s.calls = append(s.calls, symbols)
	if s.err != nil {
		return nil, s.err
	}
	found := make(map[string]universe.Ticker)
	for _, sym := range symbols {
		if t, ok := s.tickers[sym]; ok {
			found[sym] = t
		}
	}
	return found, nil
}

func TestCalculator_Compute(t *testing.T) {
	lookup := &stubLookup{tickers: snapshotAB()}
	calc := NewCalculator(lookup, zerolog.Nop())

	metrics, snapshot, err := calc.Compute(context.Background(), []PositionInput{pos("A", 4, "100"), pos("A", 1, "90"), pos("B", 3, "200")})
	require.NoError(t, err)

	assert.Len(t, snapshot, 2)
	require.Len(t, lookup.calls, 1)
	assert.Equal(t, []string{"A", "B"}, lookup.calls[0], "symbols are de-duplicated")
	assert.Equal(t, "1090", metrics.TotalValue.String())
}

func TestCalculator_Compute_UnknownSymbol(t *testing.T) {
	calc := NewCalculator(&stubLookup{tickers: snapshotAB()}, zerolog.Nop())

	_, _, err := calc.Compute(context.Background(), []PositionInput{pos("A", 1, "1"), pos("NOPE", 1, "1")})
	assert.ErrorIs(t, err, domain.ErrTickerNotFound)
}

func TestCalculator_Compute_StoreError(t *testing.T) {
	storeErr := errors.New("locked")
	calc := NewCalculator(&stubLookup{err: storeErr}, zerolog.Nop())

	_, _, err := calc.Compute(context.Background(), []PositionInput{pos("A", 1, "1")})
	assert.ErrorIs(t, err, storeErr)
}

func TestCalculator_Compute_EmptySkipsStore(t *testing.T) {
	lookup := &stubLookup{}
	calc := NewCalculator(lookup, zerolog.Nop())

	metrics, _, err := calc.Compute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, metrics.TotalValue.IsZero())
	assert.Empty(t, lookup.calls)
}
