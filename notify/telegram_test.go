package notify

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSummary(t *testing.T) {
	tests := []struct {
		name     string
		summary  Summary
		contains []string
		absent   []string
	}{
		{
			name: "success",
			summary: Summary{
				RunID:    "run-1",
				Records:  12,
				Flats:    10,
				Parking:  2,
				Output:   "ndv_ru.json",
				Duration: 90 * time.Second,
			},
			contains: []string{"✅", "12 records", "Flats: 10", "Parking spaces: 2", "<code>ndv_ru.json</code>", "Took: 1m30s", "run-1"},
			absent:   []string{"❌", "malformed", "spreadsheet"},
		},
		{
			name: "failure escapes error text",
			summary: Summary{
				Records:          3,
				SkippedComplexes: 4,
				MalformedTiles:   1,
				Err:              errors.New("status 500 from <host>"),
			},
			contains: []string{"❌", "&lt;host&gt;", "Saved 3 records", "Complexes without parking: 4", "Skipped malformed tiles: 1"},
			absent:   []string{"✅", "<host>"},
		},
		{
			name:     "sheet link",
			summary:  Summary{SheetURL: "https://docs.google.com/spreadsheets/d/x/edit#gid=1"},
			contains: []string{"View spreadsheet: https://docs.google.com/spreadsheets/d/x/edit#gid=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSummary(tt.summary)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestTelegramSend(t *testing.T) {
	var sentText, sentChat, sentMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ndv","username":"ndv_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			sentText = r.FormValue("text")
			sentChat = r.FormValue("chat_id")
			sentMode = r.FormValue("parse_mode")
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegramWithEndpoint("token", srv.URL+"/bot%s/%s", 42, log.New(io.Discard))
	require.NoError(t, err)

	require.NoError(t, tg.Send(Summary{Records: 5, Flats: 5}))
	assert.Equal(t, "42", sentChat)
	assert.Equal(t, "HTML", sentMode)
	assert.Contains(t, sentText, "5 records")
}

func TestNewTelegramRequiresToken(t *testing.T) {
	_, err := NewTelegram("", 1, log.New(io.Discard))
	assert.Error(t, err)
}
