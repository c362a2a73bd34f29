package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndv-scraper/models"
)

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestEncodeKeepsNullsAndURLs(t *testing.T) {
	r := models.NewRecord(models.TypeParking, "ЖК Сити(Москва)")
	r.Plan = models.String("/img?w=1&h=2")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []models.Record{r}))

	out := buf.String()
	assert.Contains(t, out, `"plan": "/img?w=1&h=2"`)
	assert.Contains(t, out, `"complex": "ЖК Сити(Москва)"`)
	assert.Contains(t, out, `"price_base": null`)
	assert.Equal(t, len(models.RecordKeys()), strings.Count(out, `": `))
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "ndv_ru.json")

	flat := models.NewRecord(models.TypeFlat, "ЖК")
	flat.Rooms = &models.StudioRooms
	flat.SetPrices(models.Int(5000000), nil)
	records := []models.Record{flat, models.NewRecord(models.TypeParking, "ЖК")}

	require.NoError(t, WriteFile(path, records))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, records[1], got[1])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteFileReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndv_ru.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	require.NoError(t, WriteFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
