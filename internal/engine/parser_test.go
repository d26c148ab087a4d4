package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// parserNow is the wall clock used in parser tests.
var parserNow = time.Date(2023, time.June, 1, 10, 30, 0, 0, time.UTC)

func TestParseSpendingsSingleEntry(t *testing.T) {
	t.Parallel()

	entries, ts, err := ParseSpendings("12.5 coffee", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "12.5", entries[0].Price.String())
	require.Equal(t, "coffee", entries[0].Name)
	require.Empty(t, entries[0].Quantity)
	require.Equal(t, parserNow, ts)
	require.Equal(t, parserNow, entries[0].OccurredAt)
}

func TestParseSpendingsMultipleEntriesWithTimestamp(t *testing.T) {
	t.Parallel()

	entries, ts, err := ParseSpendings("12.5 coffee x2, 3 tea @15.03.2023 14:30", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "12.5", entries[0].Price.String())
	require.Equal(t, "coffee", entries[0].Name)
	require.Equal(t, "2", entries[0].Quantity)

	require.Equal(t, "3", entries[1].Price.String())
	require.Equal(t, "tea", entries[1].Name)
	require.Empty(t, entries[1].Quantity)

	want := time.Date(2023, time.March, 15, 14, 30, 0, 0, time.UTC)
	require.Equal(t, want, ts)
	require.Equal(t, want, entries[1].OccurredAt)
}

func TestParseSpendingsDateWithoutYear(t *testing.T) {
	t.Parallel()

	// Current year is appended, and a missing time means midnight.
	entries, ts, err := ParseSpendings("12.5 coffee @20.06", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, time.Date(2023, time.June, 20, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseSpendingsTimeWithDots(t *testing.T) {
	t.Parallel()

	_, ts, err := ParseSpendings("100 groceries @15.03 14.30", parserNow)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.March, 15, 14, 30, 0, 0, time.UTC), ts)
}

func TestParseSpendingsDelimiters(t *testing.T) {
	t.Parallel()

	entries, _, err := ParseSpendings("1 bread; 2.5 milk + 3 eggs, 4 butter", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	names := []string{entries[0].Name, entries[1].Name, entries[2].Name, entries[3].Name}
	require.Equal(t, []string{"bread", "milk", "eggs", "butter"}, names)
}

func TestParseSpendingsQuantitySuffix(t *testing.T) {
	t.Parallel()

	entries, _, err := ParseSpendings("3 potatoes x3kg", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "potatoes", entries[0].Name)
	require.Equal(t, "3kg", entries[0].Quantity)
}

func TestParseSpendingsNameContainingX(t *testing.T) {
	t.Parallel()

	// "x" followed by a non-digit belongs to the name, not the quantity.
	entries, _, err := ParseSpendings("15 xmas tree", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "xmas tree", entries[0].Name)
	require.Empty(t, entries[0].Quantity)
}

func TestParseSpendingsFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "no price", input: "not a valid spending"},
		{name: "empty", input: ""},
		{name: "only delimiters", input: ", ; +"},
		{name: "price without name", input: "12.5"},
		{name: "one bad segment fails all", input: "12.5 coffee, nonsense"},
		{name: "price with two points", input: "1.2.3 thing"},
		{name: "only timestamp", input: "@15.03.2023 14:30"},
		{name: "bad timestamp", input: "12.5 coffee @99.99.2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entries, _, err := ParseSpendings(tt.input, parserNow)
			require.ErrorIs(t, err, ErrNoSpendings)
			require.Empty(t, entries, "failed parse must not return partial results")
		})
	}
}

func TestParseSpendingsPreservesOrder(t *testing.T) {
	t.Parallel()

	entries, _, err := ParseSpendings("1 a, 2 b, 3 c", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []string{"1", "2", "3"} {
		require.True(t, entries[i].Price.Equal(decimal.RequireFromString(want)))
	}
}

func TestParseSpendingsNewlineSeparated(t *testing.T) {
	t.Parallel()

	entries, _, err := ParseSpendings("12.5 coffee\n3 tea", parserNow)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "coffee", entries[0].Name)
	require.Equal(t, "tea", entries[1].Name)
}
