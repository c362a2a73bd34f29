package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ndv-scraper/models"
)

// maxSheetNameLength is the longest sheet title Google Sheets accepts
const maxSheetNameLength = 100

// Writer handles writing records to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *log.Logger
}

// NewWriter creates a new Google Sheets writer. spreadsheet may be a bare
// ID or a full spreadsheet URL.
func NewWriter(ctx context.Context, spreadsheet, credentialsPath string, logger *log.Logger) (*Writer, error) {
	credsJSON, err := readCredentials(credentialsPath, logger)
	if err != nil {
		return nil, err
	}

	// Create service
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(service, spreadsheet, logger), nil
}

func newWriter(service *sheets.Service, spreadsheet string, logger *log.Logger) *Writer {
	id := spreadsheet
	if extracted := ExtractSpreadsheetID(spreadsheet); extracted != "" {
		id = extracted
	}
	return &Writer{
		service:       service,
		spreadsheetID: id,
		logger:        logger,
	}
}

// readCredentials reads service account JSON from a file or from the
// GOOGLE_SHEETS_CREDENTIALS environment variable
func readCredentials(credentialsPath string, logger *log.Logger) ([]byte, error) {
	var credsJSON []byte

	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		// Trim whitespace and newlines that might be in the environment variable
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		logger.Debug("reading credentials from GOOGLE_SHEETS_CREDENTIALS", "bytes", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	return credsJSON, nil
}

// CreateSheetAndWriteRecords creates a new sheet and writes records to it.
// The sheet is inserted at the beginning (index 0) of the spreadsheet.
// source is optional and becomes a metadata row above the header.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.Record, source string) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
						// ForceSendFields keeps index 0 in the request
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}
	w.logger.Info("created sheet", "name", sheetName, "id", sheetID)

	valueRange := &sheets.ValueRange{
		Values: buildValues(records, source),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	w.logger.Info("wrote records to sheet", "count", len(records), "name", sheetName)
	return sheetName, sheetID, nil
}

// buildValues lays records out as rows under a header of record keys
func buildValues(records []models.Record, source string) [][]interface{} {
	values := make([][]interface{}, 0, len(records)+2)

	if source != "" {
		values = append(values, []interface{}{"Source", source})
	}

	keys := models.RecordKeys()
	header := make([]interface{}, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	values = append(values, header)

	for _, record := range records {
		row := record.Values()
		for i, v := range row {
			switch v := v.(type) {
			case nil:
				row[i] = ""
			case models.Rooms:
				row[i] = v.String()
			}
		}
		values = append(values, row)
	}

	return values
}

// sanitizeSheetName removes invalid characters from sheet name and cuts it
// to the allowed length
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] '
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", "'"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	if utf8.RuneCountInString(result) > maxSheetNameLength {
		result = string([]rune(result)[:maxSheetNameLength])
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}

// SheetURL creates a URL that opens a specific sheet in the spreadsheet
func (w *Writer) SheetURL(sheetID int64) string {
	// Format: https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit#gid=SHEET_ID
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", w.spreadsheetID, sheetID)
}
