// Package engine implements the conversation state machine and the
// free-text spending parser at the core of the bot. The engine depends on
// its collaborators (session storage, category storage, the spreadsheet
// backend and the entry sink) only through narrow capability interfaces.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/logger"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// ErrDocumentNotFound is returned by SpreadsheetBackend implementations
// when a document reference does not resolve to a spreadsheet.
var ErrDocumentNotFound = errors.New("spreadsheet document not found")

// Selection payloads understood by the engine. Worksheet selections carry
// the worksheet id as a decimal string instead.
const (
	SelectCreateWorksheet   = "new_worksheet"
	SelectClearWorksheet    = "clear"
	SelectAppendWorksheet   = "append"
	SelectCategoriesEnable  = "categories_enable"
	SelectCategoriesDisable = "categories_disable"
	SelectCategoriesAdd     = "categories_add"

	categoriesDelPrefix = "categories_del_"
)

// SessionStore persists per-chat conversation state. Get lazily creates a
// session in models.StateDefault for unknown chats.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (*models.Session, error)
	SetState(ctx context.Context, chatID int64, state models.State) error
	SetDocumentRef(ctx context.Context, chatID int64, ref string) error
	SetWorksheetRef(ctx context.Context, chatID int64, ref string) error
	SetCategoriesEnabled(ctx context.Context, chatID int64, enabled bool) error
}

// CategoryStore persists per-chat spending categories. Add assigns ids
// from a per-chat monotonic counter; ids are never reused. List carries no
// ordering guarantee.
type CategoryStore interface {
	Add(ctx context.Context, chatID int64, title string) (models.Category, error)
	Remove(ctx context.Context, chatID int64, id int64) error
	List(ctx context.Context, chatID int64) ([]models.Category, error)
}

// SpreadsheetBackend is the spreadsheet side of the conversation.
// ListWorksheets reports ErrDocumentNotFound for unresolvable references.
type SpreadsheetBackend interface {
	ListWorksheets(ctx context.Context, docRef string) ([]models.Worksheet, error)
	WorksheetExists(ctx context.Context, docRef string, worksheetID int64) (bool, error)
	IsEmpty(ctx context.Context, docRef string, worksheetID int64) (bool, error)
	Clear(ctx context.Context, docRef string, worksheetID int64) error
	CreateWorksheet(ctx context.Context, docRef string, name string) (int64, error)
	AppendEntries(ctx context.Context, docRef string, worksheetID int64, entries []models.SpendingEntry) error
}

// Engine is the per-chat conversation state machine.
type Engine struct {
	sessions   SessionStore
	categories CategoryStore
	sheets     SpreadsheetBackend
	sink       EntrySink
	now        func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for implicit spending timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a conversation engine.
func New(
	sessions SessionStore,
	categories CategoryStore,
	sheets SpreadsheetBackend,
	sink EntrySink,
	opts ...Option,
) *Engine {
	e := &Engine{
		sessions:   sessions,
		categories: categories,
		sheets:     sheets,
		sink:       sink,
		now:        time.Now,
		locks:      make(map[int64]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Handle applies one inbound event to the chat's conversation state and
// returns the outbound actions. Events for the same chat are serialized so
// at most one transition is in flight per chat. Unrecognized event/state
// combinations (stale keyboard callbacks and the like) are silent no-ops:
// nil actions, nil error.
//
// On collaborator failure the returned actions contain a generic failure
// prompt and the underlying error is returned for logging; the session is
// left unchanged.
func (e *Engine) Handle(ctx context.Context, chatID int64, event Event) ([]Action, error) {
	lock := e.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.sessions.Get(ctx, chatID)
	if err != nil {
		return e.failure(fmt.Errorf("load session: %w", err))
	}

	logger.Log.Debug().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("state", string(session.State)).
		Msg("Dispatching event")

	switch ev := event.(type) {
	case TextEvent:
		return e.handleText(ctx, session, strings.TrimSpace(ev.Text))
	case SelectionEvent:
		return e.handleSelection(ctx, session, ev.Data)
	default:
		return nil, nil
	}
}

// Restart rebinds the chat to the registration entry point so a new
// document reference can be sent. Existing categories are kept.
func (e *Engine) Restart(ctx context.Context, chatID int64) error {
	lock := e.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.sessions.Get(ctx, chatID); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return e.sessions.SetState(ctx, chatID, models.StateDefault)
}

func (e *Engine) handleText(ctx context.Context, s *models.Session, text string) ([]Action, error) {
	if text == "" {
		return nil, nil
	}

	switch s.State {
	case models.StateDefault:
		return e.registerDocument(ctx, s, text)
	case models.StateWorksheetCreation:
		return e.createWorksheet(ctx, s, text)
	case models.StateCategoryAdd:
		return e.addCategory(ctx, s, text)
	case models.StateReady:
		return e.recordSpendings(ctx, s, text)
	case models.StateWorksheetSelection, models.StateConfiguringWorksheet:
		// A keyboard is pending; free text is ignored.
		return nil, nil
	default:
		return nil, nil
	}
}

func (e *Engine) handleSelection(ctx context.Context, s *models.Session, data string) ([]Action, error) {
	switch s.State {
	case models.StateWorksheetSelection:
		return e.selectWorksheet(ctx, s, data)
	case models.StateConfiguringWorksheet:
		return e.configureWorksheet(ctx, s, data)
	case models.StateReady:
		return e.manageCategories(ctx, s, data)
	case models.StateDefault, models.StateWorksheetCreation, models.StateCategoryAdd:
		// Stale keyboard callback.
		return nil, nil
	default:
		return nil, nil
	}
}

// registerDocument treats the incoming text as a candidate document
// reference and validates it by listing its worksheets.
func (e *Engine) registerDocument(ctx context.Context, s *models.Session, ref string) ([]Action, error) {
	worksheets, err := e.sheets.ListWorksheets(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return []Action{Prompt{Text: textDocumentValidationError}}, nil
		}
		return e.failure(fmt.Errorf("list worksheets: %w", err))
	}
	if len(worksheets) == 0 {
		return []Action{Prompt{Text: textDocumentValidationError}}, nil
	}

	if err := e.sessions.SetDocumentRef(ctx, s.ChatID, ref); err != nil {
		return e.failure(fmt.Errorf("persist document ref: %w", err))
	}
	if err := e.sessions.SetState(ctx, s.ChatID, models.StateWorksheetSelection); err != nil {
		return e.failure(fmt.Errorf("persist state: %w", err))
	}

	choices := make([]Choice, 0, len(worksheets)+1)
	for _, ws := range worksheets {
		choices = append(choices, Choice{Label: ws.Title, Data: strconv.FormatInt(ws.ID, 10)})
	}
	choices = append(choices, Choice{Label: textCreateNewWorksheetButton, Data: SelectCreateWorksheet})

	return []Action{PromptWithChoices{Text: textWorksheetSelection, Choices: choices}}, nil
}

func (e *Engine) selectWorksheet(ctx context.Context, s *models.Session, data string) ([]Action, error) {
	if data == SelectCreateWorksheet {
		if err := e.sessions.SetState(ctx, s.ChatID, models.StateWorksheetCreation); err != nil {
			return e.failure(fmt.Errorf("persist state: %w", err))
		}
		return []Action{EditPrompt{Text: textWorksheetCreation}}, nil
	}

	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		// Not a worksheet id: stale or foreign callback.
		return nil, nil
	}

	exists, err := e.sheets.WorksheetExists(ctx, s.DocumentRef, id)
	if err != nil {
		return e.failure(fmt.Errorf("validate worksheet: %w", err))
	}
	if !exists {
		return []Action{EditPrompt{Text: textWorksheetValidationError}}, nil
	}

	// Check emptiness before persisting anything so a collaborator failure
	// leaves the session untouched.
	empty, err := e.sheets.IsEmpty(ctx, s.DocumentRef, id)
	if err != nil {
		return e.failure(fmt.Errorf("inspect worksheet: %w", err))
	}

	if err := e.sessions.SetWorksheetRef(ctx, s.ChatID, strconv.FormatInt(id, 10)); err != nil {
		return e.failure(fmt.Errorf("persist worksheet ref: %w", err))
	}

	if !empty {
		if err := e.sessions.SetState(ctx, s.ChatID, models.StateConfiguringWorksheet); err != nil {
			return e.failure(fmt.Errorf("persist state: %w", err))
		}
		return []Action{EditPrompt{
			Text: textWorksheetConfiguration,
			Choices: []Choice{
				{Label: textRewriteWorksheetButton, Data: SelectClearWorksheet},
				{Label: textAppendWorksheetButton, Data: SelectAppendWorksheet},
			},
		}}, nil
	}

	if err := e.sessions.SetState(ctx, s.ChatID, models.StateReady); err != nil {
		return e.failure(fmt.Errorf("persist state: %w", err))
	}
	return registrationCompleted(true), nil
}

func (e *Engine) createWorksheet(ctx context.Context, s *models.Session, name string) ([]Action, error) {
	id, err := e.sheets.CreateWorksheet(ctx, s.DocumentRef, name)
	if err != nil {
		return e.failure(fmt.Errorf("create worksheet: %w", err))
	}

	if err := e.sessions.SetWorksheetRef(ctx, s.ChatID, strconv.FormatInt(id, 10)); err != nil {
		return e.failure(fmt.Errorf("persist worksheet ref: %w", err))
	}
	if err := e.sessions.SetState(ctx, s.ChatID, models.StateReady); err != nil {
		return e.failure(fmt.Errorf("persist state: %w", err))
	}

	return registrationCompleted(false), nil
}

func (e *Engine) configureWorksheet(ctx context.Context, s *models.Session, data string) ([]Action, error) {
	switch data {
	case SelectClearWorksheet:
		id, ok := worksheetID(s)
		if !ok {
			return e.failure(fmt.Errorf("invalid worksheet ref %q", s.WorksheetRef))
		}
		if err := e.sheets.Clear(ctx, s.DocumentRef, id); err != nil {
			return e.failure(fmt.Errorf("clear worksheet: %w", err))
		}
	case SelectAppendWorksheet:
		// Keep existing rows.
	default:
		return nil, nil
	}

	if err := e.sessions.SetState(ctx, s.ChatID, models.StateReady); err != nil {
		return e.failure(fmt.Errorf("persist state: %w", err))
	}
	return registrationCompleted(true), nil
}

// recordSpendings parses the message and hands the entries to the sink.
// Storage is fire-and-forget: only enqueue acceptance is acknowledged.
func (e *Engine) recordSpendings(ctx context.Context, s *models.Session, text string) ([]Action, error) {
	entries, _, err := ParseSpendings(text, e.now())
	if err != nil {
		return []Action{Prompt{Text: textErrorParsingSpendings}}, nil
	}

	id, ok := worksheetID(s)
	if !ok {
		return e.failure(fmt.Errorf("invalid worksheet ref %q", s.WorksheetRef))
	}

	if err := e.sink.Enqueue(s.ChatID, s.DocumentRef, id, entries); err != nil {
		return e.failure(fmt.Errorf("enqueue spendings: %w", err))
	}

	return []Action{Ack{Text: textStoringInProgress}}, nil
}

func (e *Engine) addCategory(ctx context.Context, s *models.Session, title string) ([]Action, error) {
	if r := []rune(title); len(r) > models.MaxCategoryTitleLength {
		title = string(r[:models.MaxCategoryTitleLength])
	}

	if _, err := e.categories.Add(ctx, s.ChatID, title); err != nil {
		return e.failure(fmt.Errorf("add category: %w", err))
	}
	if err := e.sessions.SetState(ctx, s.ChatID, models.StateReady); err != nil {
		return e.failure(fmt.Errorf("persist state: %w", err))
	}

	return e.categoryList(ctx, s.ChatID, false)
}

func (e *Engine) manageCategories(ctx context.Context, s *models.Session, data string) ([]Action, error) {
	switch {
	case data == SelectCategoriesEnable:
		if err := e.sessions.SetCategoriesEnabled(ctx, s.ChatID, true); err != nil {
			return e.failure(fmt.Errorf("enable categories: %w", err))
		}
		return e.categoryList(ctx, s.ChatID, true)

	case data == SelectCategoriesDisable:
		if err := e.sessions.SetCategoriesEnabled(ctx, s.ChatID, false); err != nil {
			return e.failure(fmt.Errorf("disable categories: %w", err))
		}
		return []Action{EditPrompt{
			Text:    textCategoriesOffer,
			Choices: []Choice{{Label: textCategoriesOfferButton, Data: SelectCategoriesEnable}},
		}}, nil

	case data == SelectCategoriesAdd:
		if err := e.sessions.SetState(ctx, s.ChatID, models.StateCategoryAdd); err != nil {
			return e.failure(fmt.Errorf("persist state: %w", err))
		}
		return []Action{EditPrompt{Text: textCategoriesInputNew}}, nil

	case strings.HasPrefix(data, categoriesDelPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, categoriesDelPrefix), 10, 64)
		if err != nil {
			// Malformed id in a callback payload: ignore.
			return nil, nil
		}
		if err := e.categories.Remove(ctx, s.ChatID, id); err != nil {
			return e.failure(fmt.Errorf("remove category: %w", err))
		}
		return e.categoryList(ctx, s.ChatID, true)

	default:
		return nil, nil
	}
}

// categoryList builds the category management keyboard. The backing store
// enumerates categories in arbitrary order; display order is id order.
func (e *Engine) categoryList(ctx context.Context, chatID int64, edit bool) ([]Action, error) {
	categories, err := e.categories.List(ctx, chatID)
	if err != nil {
		return e.failure(fmt.Errorf("list categories: %w", err))
	}

	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	choices := make([]Choice, 0, len(categories)+2)
	for _, cat := range categories {
		choices = append(choices, Choice{
			Label: "[x] " + cat.Title,
			Data:  fmt.Sprintf("%s%d", categoriesDelPrefix, cat.ID),
		})
	}
	choices = append(choices,
		Choice{Label: textCategoriesAddButton, Data: SelectCategoriesAdd},
		Choice{Label: textCategoriesDisableButton, Data: SelectCategoriesDisable},
	)

	text := fmt.Sprintf(textCategoriesList, len(categories))
	if edit {
		return []Action{EditPrompt{Text: text, Choices: choices}}, nil
	}
	return []Action{PromptWithChoices{Text: text, Choices: choices}}, nil
}

// registrationCompleted is the fixed three-part sequence emitted when the
// worksheet binding finishes: completion notice, one-time usage example,
// then the categories offer. Order is significant.
func registrationCompleted(edit bool) []Action {
	first := Action(Prompt{Text: textRegistrationCompleted})
	if edit {
		first = EditPrompt{Text: textRegistrationCompleted}
	}

	return []Action{
		first,
		Prompt{Text: textSpendingExample},
		PromptWithChoices{
			Text:    textCategoriesOffer,
			Choices: []Choice{{Label: textCategoriesOfferButton, Data: SelectCategoriesEnable}},
		},
	}
}

func (e *Engine) failure(err error) ([]Action, error) {
	return []Action{Prompt{Text: textSomethingWentWrong}}, err
}

func (e *Engine) chatLock(chatID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[chatID] = lock
	}
	return lock
}

func worksheetID(s *models.Session) (int64, bool) {
	id, err := strconv.ParseInt(s.WorksheetRef, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
