// Package sheets provides a Google Sheets v4 API client covering the
// worksheet operations the bot needs.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// ErrWorksheetNotFound is returned when a worksheet id does not exist in
// the document.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// entryTimeFormat is how spending timestamps are written into sheet rows.
const entryTimeFormat = "02.01.2006 15:04"

// Compile-time check that the client satisfies the engine's contract.
var _ engine.SpreadsheetBackend = (*Client)(nil)

// Client is a client for the Google Sheets v4 REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Sheets API client authenticating with a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "https://sheets.googleapis.com/v4"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: trimmed,
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SpreadsheetID extracts the spreadsheet id from a document reference,
// which may be either a bare id or a full docs.google.com URL.
func SpreadsheetID(ref string) string {
	ref = strings.TrimSpace(ref)

	const marker = "/spreadsheets/d/"
	idx := strings.Index(ref, marker)
	if idx == -1 {
		return ref
	}

	rest := ref[idx+len(marker):]
	if end := strings.IndexAny(rest, "/?#"); end != -1 {
		rest = rest[:end]
	}
	return rest
}

type sheetProperties struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
}

type spreadsheetResponse struct {
	Sheets []struct {
		Properties sheetProperties `json:"properties"`
	} `json:"sheets"`
}

// ListWorksheets returns the worksheets of a document. An unresolvable
// reference is reported as engine.ErrDocumentNotFound.
func (c *Client) ListWorksheets(ctx context.Context, docRef string) ([]models.Worksheet, error) {
	id := SpreadsheetID(docRef)
	if id == "" {
		return nil, fmt.Errorf("%w: empty document reference", engine.ErrDocumentNotFound)
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=sheets.properties", c.baseURL, url.PathEscape(id))

	var payload spreadsheetResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.rejected() {
			return nil, fmt.Errorf("%w: %v", engine.ErrDocumentNotFound, err)
		}
		return nil, fmt.Errorf("failed to list worksheets: %w", err)
	}

	worksheets := make([]models.Worksheet, 0, len(payload.Sheets))
	for _, sheet := range payload.Sheets {
		worksheets = append(worksheets, models.Worksheet{
			ID:    sheet.Properties.SheetID,
			Title: sheet.Properties.Title,
		})
	}
	return worksheets, nil
}

// WorksheetExists reports whether the document has a worksheet with the id.
func (c *Client) WorksheetExists(ctx context.Context, docRef string, worksheetID int64) (bool, error) {
	_, err := c.worksheetTitle(ctx, docRef, worksheetID)
	if errors.Is(err, ErrWorksheetNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsEmpty reports whether the worksheet contains no values at all.
func (c *Client) IsEmpty(ctx context.Context, docRef string, worksheetID int64) (bool, error) {
	title, err := c.worksheetTitle(ctx, docRef, worksheetID)
	if err != nil {
		return false, err
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL,
		url.PathEscape(SpreadsheetID(docRef)),
		url.PathEscape(worksheetRange(title)),
	)

	var payload struct {
		Values [][]any `json:"values"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return false, fmt.Errorf("failed to read worksheet values: %w", err)
	}

	return len(payload.Values) == 0, nil
}

// Clear removes all values from the worksheet.
func (c *Client) Clear(ctx context.Context, docRef string, worksheetID int64) error {
	title, err := c.worksheetTitle(ctx, docRef, worksheetID)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:clear",
		c.baseURL,
		url.PathEscape(SpreadsheetID(docRef)),
		url.PathEscape(worksheetRange(title)),
	)

	if err := c.doJSON(ctx, http.MethodPost, endpoint, struct{}{}, nil); err != nil {
		return fmt.Errorf("failed to clear worksheet: %w", err)
	}
	return nil
}

type addSheetEntry struct {
	AddSheet struct {
		Properties sheetProperties `json:"properties"`
	} `json:"addSheet"`
}

type addSheetRequest struct {
	Requests []addSheetEntry `json:"requests"`
}

type batchUpdateResponse struct {
	Replies []struct {
		AddSheet struct {
			Properties sheetProperties `json:"properties"`
		} `json:"addSheet"`
	} `json:"replies"`
}

// CreateWorksheet adds a worksheet with the given title and returns its id.
func (c *Client) CreateWorksheet(ctx context.Context, docRef string, name string) (int64, error) {
	var entry addSheetEntry
	entry.AddSheet.Properties.Title = name
	body := addSheetRequest{Requests: []addSheetEntry{entry}}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s:batchUpdate", c.baseURL, url.PathEscape(SpreadsheetID(docRef)))

	var payload batchUpdateResponse
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &payload); err != nil {
		return 0, fmt.Errorf("failed to create worksheet: %w", err)
	}

	if len(payload.Replies) == 0 {
		return 0, errors.New("batchUpdate response carries no addSheet reply")
	}
	return payload.Replies[0].AddSheet.Properties.SheetID, nil
}

// AppendEntries appends one row per spending entry to the worksheet.
func (c *Client) AppendEntries(ctx context.Context, docRef string, worksheetID int64, entries []models.SpendingEntry) error {
	if len(entries) == 0 {
		return nil
	}

	title, err := c.worksheetTitle(ctx, docRef, worksheetID)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []any{
			entry.OccurredAt.Format(entryTimeFormat),
			entry.Name,
			entry.Price.String(),
			entry.Quantity,
		})
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL,
		url.PathEscape(SpreadsheetID(docRef)),
		url.PathEscape(worksheetRange(title)),
	)

	body := struct {
		Values [][]any `json:"values"`
	}{Values: rows}

	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("failed to append entries: %w", err)
	}
	return nil
}

// worksheetTitle resolves a worksheet id to its title. The values API is
// addressed by title, the selection keyboard by id.
func (c *Client) worksheetTitle(ctx context.Context, docRef string, worksheetID int64) (string, error) {
	worksheets, err := c.ListWorksheets(ctx, docRef)
	if err != nil {
		return "", err
	}

	for _, ws := range worksheets {
		if ws.ID == worksheetID {
			return ws.Title, nil
		}
	}
	return "", fmt.Errorf("%w: id %d", ErrWorksheetNotFound, worksheetID)
}

// worksheetRange is the A1-notation range covering a whole worksheet.
func worksheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// apiError is a non-2xx response from the Sheets API.
type apiError struct {
	StatusCode int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("sheets API returned status %d", e.StatusCode)
}

// rejected reports whether the status means the request itself was bad,
// as opposed to a transient backend failure.
func (e *apiError) rejected() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
