package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

const testSpreadsheetJSON = `{
	"sheets": [
		{"properties": {"sheetId": 0, "title": "Sheet1"}},
		{"properties": {"sheetId": 812, "title": "May '24"}}
	]
}`

func TestSpreadsheetID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "bare id",
			ref:  "1aBcD_eFgH",
			want: "1aBcD_eFgH",
		},
		{
			name: "full url",
			ref:  "https://docs.google.com/spreadsheets/d/1aBcD_eFgH/edit#gid=0",
			want: "1aBcD_eFgH",
		},
		{
			name: "url with query",
			ref:  "https://docs.google.com/spreadsheets/d/1aBcD_eFgH?usp=sharing",
			want: "1aBcD_eFgH",
		},
		{
			name: "url without trailing path",
			ref:  "https://docs.google.com/spreadsheets/d/1aBcD_eFgH",
			want: "1aBcD_eFgH",
		},
		{
			name: "surrounding whitespace",
			ref:  "  1aBcD_eFgH\n",
			want: "1aBcD_eFgH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SpreadsheetID(tt.ref))
		})
	}
}

func TestClient_ListWorksheets(t *testing.T) {
	t.Parallel()

	t.Run("lists worksheets", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/spreadsheets/doc-1", r.URL.Path)
			assert.Equal(t, "sheets.properties", r.URL.Query().Get("fields"))
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(testSpreadsheetJSON))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		got, err := client.ListWorksheets(context.Background(), "doc-1")
		require.NoError(t, err)
		require.Equal(t, []models.Worksheet{
			{ID: 0, Title: "Sheet1"},
			{ID: 812, Title: "May '24"},
		}, got)
	})

	t.Run("accepts a full document url", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/spreadsheets/doc-1", r.URL.Path)
			_, _ = w.Write([]byte(testSpreadsheetJSON))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.ListWorksheets(context.Background(), "https://docs.google.com/spreadsheets/d/doc-1/edit#gid=0")
		require.NoError(t, err)
	})

	t.Run("maps 404 to document not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.ListWorksheets(context.Background(), "doc-1")
		require.ErrorIs(t, err, engine.ErrDocumentNotFound)
	})

	t.Run("maps 403 to document not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.ListWorksheets(context.Background(), "doc-1")
		require.ErrorIs(t, err, engine.ErrDocumentNotFound)
	})

	t.Run("keeps server failures distinct from not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.ListWorksheets(context.Background(), "doc-1")
		require.Error(t, err)
		require.NotErrorIs(t, err, engine.ErrDocumentNotFound)
		require.Contains(t, err.Error(), "status 502")
	})

	t.Run("rejects an empty reference without a request", func(t *testing.T) {
		t.Parallel()

		client := NewClient("https://sheets.invalid", "test-token", time.Second)
		_, err := client.ListWorksheets(context.Background(), "   ")
		require.ErrorIs(t, err, engine.ErrDocumentNotFound)
	})
}

func TestClient_WorksheetExists(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testSpreadsheetJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)

	exists, err := client.WorksheetExists(context.Background(), "doc-1", 812)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = client.WorksheetExists(context.Background(), "doc-1", 999)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestClient_IsEmpty(t *testing.T) {
	t.Parallel()

	t.Run("reports an empty worksheet", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/spreadsheets/doc-1" {
				_, _ = w.Write([]byte(testSpreadsheetJSON))
				return
			}
			assert.Equal(t, "/spreadsheets/doc-1/values/'Sheet1'", r.URL.Path)
			_, _ = w.Write([]byte(`{"range":"Sheet1!A1:Z1000"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		empty, err := client.IsEmpty(context.Background(), "doc-1", 0)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("reports a populated worksheet", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/spreadsheets/doc-1" {
				_, _ = w.Write([]byte(testSpreadsheetJSON))
				return
			}
			_, _ = w.Write([]byte(`{"values":[["01.05.2024 10:00","coffee","3.5",""]]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		empty, err := client.IsEmpty(context.Background(), "doc-1", 0)
		require.NoError(t, err)
		require.False(t, empty)
	})

	t.Run("quotes apostrophes in worksheet titles", func(t *testing.T) {
		t.Parallel()

		var valuesPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/spreadsheets/doc-1" {
				_, _ = w.Write([]byte(testSpreadsheetJSON))
				return
			}
			valuesPath = r.URL.Path
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.IsEmpty(context.Background(), "doc-1", 812)
		require.NoError(t, err)
		require.Equal(t, "/spreadsheets/doc-1/values/'May ''24'", valuesPath)
	})

	t.Run("fails for an unknown worksheet id", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(testSpreadsheetJSON))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.IsEmpty(context.Background(), "doc-1", 999)
		require.ErrorIs(t, err, ErrWorksheetNotFound)
	})
}

func TestClient_Clear(t *testing.T) {
	t.Parallel()

	var clearCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/spreadsheets/doc-1" {
			_, _ = w.Write([]byte(testSpreadsheetJSON))
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/spreadsheets/doc-1/values/'Sheet1':clear", r.URL.Path)
		clearCalled = true
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)
	require.NoError(t, client.Clear(context.Background(), "doc-1", 0))
	require.True(t, clearCalled)
}

func TestClient_CreateWorksheet(t *testing.T) {
	t.Parallel()

	t.Run("creates and returns the new id", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/spreadsheets/doc-1:batchUpdate", r.URL.Path)

			var body addSheetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Requests, 1)
			require.Equal(t, "June", body.Requests[0].AddSheet.Properties.Title)

			_, _ = w.Write([]byte(`{"replies":[{"addSheet":{"properties":{"sheetId":4242,"title":"June"}}}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		id, err := client.CreateWorksheet(context.Background(), "doc-1", "June")
		require.NoError(t, err)
		require.Equal(t, int64(4242), id)
	})

	t.Run("fails when the reply is missing", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"replies":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		_, err := client.CreateWorksheet(context.Background(), "doc-1", "June")
		require.Error(t, err)
	})
}

func TestClient_AppendEntries(t *testing.T) {
	t.Parallel()

	t.Run("appends one row per entry", func(t *testing.T) {
		t.Parallel()

		occurred := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
		entries := []models.SpendingEntry{
			{Price: decimal.RequireFromString("12.5"), Name: "coffee", Quantity: "2", OccurredAt: occurred},
			{Price: decimal.RequireFromString("3"), Name: "tea", OccurredAt: occurred},
		}

		var appendBody struct {
			Values [][]any `json:"values"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/spreadsheets/doc-1" {
				_, _ = w.Write([]byte(testSpreadsheetJSON))
				return
			}
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/spreadsheets/doc-1/values/'Sheet1':append", r.URL.Path)
			assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&appendBody))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		require.NoError(t, client.AppendEntries(context.Background(), "doc-1", 0, entries))

		require.Equal(t, [][]any{
			{"01.05.2024 14:30", "coffee", "12.5", "2"},
			{"01.05.2024 14:30", "tea", "3", ""},
		}, appendBody.Values)
	})

	t.Run("skips the request for an empty batch", func(t *testing.T) {
		t.Parallel()

		client := NewClient("https://sheets.invalid", "test-token", time.Second)
		require.NoError(t, client.AppendEntries(context.Background(), "doc-1", 0, nil))
	})

	t.Run("propagates append failures", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/spreadsheets/doc-1" {
				_, _ = w.Write([]byte(testSpreadsheetJSON))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token", time.Second)
		err := client.AppendEntries(context.Background(), "doc-1", 0, []models.SpendingEntry{
			{Price: decimal.RequireFromString("1"), Name: "gum", OccurredAt: time.Now()},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "status 502")
	})
}
