// Package models defines the domain entities for the sheet spending bot.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State identifies the position of a chat in the registration conversation.
type State string

// Conversation states. A chat starts in StateDefault, walks through the
// worksheet registration steps and then stays in StateReady, where free-text
// messages are interpreted as spending entries.
const (
	StateDefault              State = "default"
	StateWorksheetSelection   State = "worksheet_selection"
	StateWorksheetCreation    State = "worksheet_creation"
	StateConfiguringWorksheet State = "configuring_worksheet"
	StateReady                State = "ready"
	StateCategoryAdd          State = "category_add"
)

// ParseState converts a stored state string into a State.
// Unknown values are rejected so a corrupt row never silently falls
// through the conversation dispatch.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StateDefault, StateWorksheetSelection, StateWorksheetCreation,
		StateConfiguringWorksheet, StateReady, StateCategoryAdd:
		return st, nil
	default:
		return "", fmt.Errorf("unknown conversation state %q", s)
	}
}

// MaxCategoryTitleLength is the maximum allowed length for category titles.
const MaxCategoryTitleLength = 50

// Session holds the per-chat conversational state.
// WorksheetRef is only ever set after DocumentRef.
type Session struct {
	ChatID            int64
	State             State
	DocumentRef       string
	WorksheetRef      string
	CategoriesEnabled bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Category is a user-defined spending category.
// IDs increase monotonically per chat and are never reused.
type Category struct {
	ID    int64
	Title string
}

// Worksheet describes one tab of a bound spreadsheet document.
type Worksheet struct {
	ID    int64
	Title string
}

// SpendingEntry is one structured record extracted from a free-text message.
type SpendingEntry struct {
	Price      decimal.Decimal
	Name       string
	Quantity   string
	OccurredAt time.Time
}
