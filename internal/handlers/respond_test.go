package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripplan/tripplan-api/internal/apperr"
	"github.com/tripplan/tripplan-api/internal/middleware"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestWriteErrorLogsRequestIDForInternalErrors(t *testing.T) {
	var handlerLog, accessLog bytes.Buffer
	handlerLogger := zerolog.New(&handlerLog)

	handler := middleware.LoggingMiddleware(zerolog.New(&accessLog))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, handlerLogger, apperr.Internal(errors.New("connection refused"), "failed to list trips"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	lines := logLines(t, &handlerLog)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
	assert.Equal(t, "/api/trips", lines[0]["path"])
	assert.Contains(t, lines[0]["error"], "connection refused")
}

func TestWriteErrorDoesNotLogClientErrors(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trips/7", nil)

	writeError(rec, req, zerolog.New(&buf), apperr.NotFound("trip not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, buf.String())
}
