package bot

import (
	"context"
	"sync"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/config"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// memSessionStore is an in-memory engine.SessionStore for handler tests.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[int64]*models.Session)}
}

func (s *memSessionStore) Get(_ context.Context, chatID int64) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatID]
	if !ok {
		sess = &models.Session{ChatID: chatID, State: models.StateDefault}
		s.sessions[chatID] = sess
	}
	clone := *sess
	return &clone, nil
}

func (s *memSessionStore) SetState(_ context.Context, chatID int64, state models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID].State = state
	return nil
}

func (s *memSessionStore) SetDocumentRef(_ context.Context, chatID int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID].DocumentRef = ref
	return nil
}

func (s *memSessionStore) SetWorksheetRef(_ context.Context, chatID int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID].WorksheetRef = ref
	return nil
}

func (s *memSessionStore) SetCategoriesEnabled(_ context.Context, chatID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID].CategoriesEnabled = enabled
	return nil
}

// memCategoryStore is an in-memory engine.CategoryStore for handler tests.
type memCategoryStore struct {
	mu         sync.Mutex
	seq        map[int64]int64
	categories map[int64][]models.Category
}

func newMemCategoryStore() *memCategoryStore {
	return &memCategoryStore{
		seq:        make(map[int64]int64),
		categories: make(map[int64][]models.Category),
	}
}

func (s *memCategoryStore) Add(_ context.Context, chatID int64, title string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[chatID]++
	cat := models.Category{ID: s.seq[chatID], Title: title}
	s.categories[chatID] = append(s.categories[chatID], cat)
	return cat, nil
}

func (s *memCategoryStore) Remove(_ context.Context, chatID int64, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.categories[chatID][:0]
	for _, cat := range s.categories[chatID] {
		if cat.ID != id {
			kept = append(kept, cat)
		}
	}
	s.categories[chatID] = kept
	return nil
}

func (s *memCategoryStore) List(_ context.Context, chatID int64) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Category, len(s.categories[chatID]))
	copy(out, s.categories[chatID])
	return out, nil
}

// stubBackend is a scripted engine.SpreadsheetBackend.
type stubBackend struct {
	mu         sync.Mutex
	worksheets []models.Worksheet
	nonEmpty   map[int64]bool
	nextID     int64
	listErr    error

	cleared  []int64
	appended [][]models.SpendingEntry
}

func newStubBackend(worksheets ...models.Worksheet) *stubBackend {
	return &stubBackend{
		worksheets: worksheets,
		nonEmpty:   make(map[int64]bool),
		nextID:     777,
	}
}

func (s *stubBackend) ListWorksheets(_ context.Context, _ string) ([]models.Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Worksheet, len(s.worksheets))
	copy(out, s.worksheets)
	return out, nil
}

func (s *stubBackend) WorksheetExists(_ context.Context, _ string, worksheetID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ws := range s.worksheets {
		if ws.ID == worksheetID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubBackend) IsEmpty(_ context.Context, _ string, worksheetID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.nonEmpty[worksheetID], nil
}

func (s *stubBackend) Clear(_ context.Context, _ string, worksheetID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, worksheetID)
	return nil
}

func (s *stubBackend) CreateWorksheet(_ context.Context, _ string, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.worksheets = append(s.worksheets, models.Worksheet{ID: id, Title: name})
	return id, nil
}

func (s *stubBackend) AppendEntries(_ context.Context, _ string, _ int64, entries []models.SpendingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, entries)
	return nil
}

// stubSink records enqueued batches.
type stubSink struct {
	mu      sync.Mutex
	batches [][]models.SpendingEntry
	err     error
}

func (s *stubSink) Enqueue(_ int64, _ string, _ int64, entries []models.SpendingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, entries)
	return nil
}

// newTestBot wires a Bot around an in-memory engine. The returned session
// store lets tests pre-seed and inspect conversation state.
func newTestBot(backend *stubBackend) (*Bot, *memSessionStore) {
	cfg := &config.Config{
		TelegramBotToken:   "test-token",
		WhitelistedUserIDs: []int64{123456},
	}

	sessions := newMemSessionStore()
	eng := engine.New(sessions, newMemCategoryStore(), backend, &stubSink{})

	return &Bot{cfg: cfg, engine: eng}, sessions
}
