package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// ErrNoSpendings is returned when a message contains no parsable spending
// segments. Parsing is all-or-nothing: one bad segment fails the whole
// message with no partial results.
var ErrNoSpendings = errors.New("no spendings recognized")

var (
	// Explicit timestamp marker anchored at the end of the message,
	// e.g. "@15.03.2023 14:30" or "@20.06".
	timestampRegex = regexp.MustCompile(`@\s*([\d.]+)\s*([\d.:]+)?\s*$`)

	// Runs of delimiters between spending segments.
	segmentSplitRegex = regexp.MustCompile(`[,;+]+`)

	// "<price> <name> [x<quantity><suffix>]" within one segment.
	spendingRegex = regexp.MustCompile(`^([\d.]+)\s+(.+?)\s*(x\d[^\s,;+]*)?$`)
)

// ParseSpendings extracts spending entries from one free-text message.
//
// An optional trailing "@ <d.m[.y]> [<H:M>]" marker sets the timestamp for
// every entry; a date without a year means the current year, and an absent
// time means midnight. Without the marker, entries are stamped with now.
// The remaining text is split on commas, semicolons and plus signs, and
// every segment must match "<price> <name> [x<quantity>]" for the parse to
// succeed. Entries are returned in the order they appear in the text.
func ParseSpendings(text string, now time.Time) ([]models.SpendingEntry, time.Time, error) {
	occurredAt := now
	if m := timestampRegex.FindStringSubmatch(text); m != nil {
		ts, err := parseTimestamp(m[1], m[2], now)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: bad timestamp: %v", ErrNoSpendings, err)
		}
		occurredAt = ts
		// Everything from the last @ onward is the timestamp marker.
		text = text[:strings.LastIndex(text, "@")]
	}

	var entries []models.SpendingEntry
	for segment := range strings.SplitSeq(text, "\n") {
		for _, part := range segmentSplitRegex.Split(segment, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			entry, err := parseSegment(part)
			if err != nil {
				return nil, time.Time{}, err
			}
			entry.OccurredAt = occurredAt
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil, time.Time{}, ErrNoSpendings
	}

	return entries, occurredAt, nil
}

func parseTimestamp(datePart, timePart string, now time.Time) (time.Time, error) {
	// A day.month date without a year means the current year.
	if strings.Count(datePart, ".") == 1 {
		datePart = fmt.Sprintf("%s.%d", datePart, now.Year())
	}

	if timePart == "" {
		return time.ParseInLocation("2.1.2006", datePart, now.Location())
	}

	timePart = strings.ReplaceAll(timePart, ".", ":")
	return time.ParseInLocation("2.1.2006 15:4", datePart+" "+timePart, now.Location())
}

func parseSegment(segment string) (models.SpendingEntry, error) {
	m := spendingRegex.FindStringSubmatch(segment)
	if m == nil {
		return models.SpendingEntry{}, fmt.Errorf("%w: %q is not a spending", ErrNoSpendings, segment)
	}

	price, err := decimal.NewFromString(m[1])
	if err != nil {
		return models.SpendingEntry{}, fmt.Errorf("%w: bad price in %q", ErrNoSpendings, segment)
	}

	return models.SpendingEntry{
		Price:    price,
		Name:     strings.TrimSpace(m[2]),
		Quantity: strings.TrimPrefix(m[3], "x"),
	}, nil
}
