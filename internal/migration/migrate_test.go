package migration

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsCreateTables(t *testing.T) {
	files, err := fs.Glob(embeddedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(embeddedMigrations, files[0])
	require.NoError(t, err)
	sql := string(body)

	for _, table := range []string{"users", "trips", "shared_trips", "history"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "-- +goose Down")
}

func TestGooseAdapterPrintf(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewGooseAdapter(zerolog.New(&buf))

	adapter.Printf("OK   %s (%d ms)\n", "00001_init.sql", 12)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "goose", line["component"])
	assert.Equal(t, "OK   00001_init.sql (12 ms)", line["message"])
}
