package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func FuzzParseSpendings(f *testing.F) {
	// Valid inputs.
	f.Add("12.5 coffee")
	f.Add("12.5 coffee x2, 3 tea")
	f.Add("12.5 coffee x2, 3 tea @15.03.2023 14:30")
	f.Add("100 groceries @20.06")
	f.Add("3 potatoes x3kg")
	f.Add("1 a; 2 b + 3 c")

	// Invalid inputs.
	f.Add("")
	f.Add("coffee")
	f.Add("@15.03.2023")
	f.Add("12.5")
	f.Add("1.2.3 thing")
	f.Add(", ; +")
	f.Add("12.5 coffee @99.99")
	f.Add("12.5 coffee, nope")
	f.Add("@@@")
	f.Add("x2")

	now := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

	f.Fuzz(func(t *testing.T, input string) {
		entries, ts, err := ParseSpendings(input, now)

		if err != nil {
			// Failed parses must not leak partial results.
			if len(entries) != 0 {
				t.Errorf("ParseSpendings(%q) returned %d entries with error %v", input, len(entries), err)
			}
			return
		}

		if len(entries) == 0 {
			t.Errorf("ParseSpendings(%q) succeeded with zero entries", input)
		}
		if ts.IsZero() {
			t.Errorf("ParseSpendings(%q) succeeded with zero timestamp", input)
		}

		for _, entry := range entries {
			if entry.Name == "" {
				t.Errorf("ParseSpendings(%q) produced an entry without a name", input)
			}
			if entry.Price.LessThan(decimal.Zero) {
				t.Errorf("ParseSpendings(%q) produced negative price %v", input, entry.Price)
			}
			if entry.OccurredAt != ts {
				t.Errorf("ParseSpendings(%q) entry timestamp %v differs from %v", input, entry.OccurredAt, ts)
			}
		}
	})
}
