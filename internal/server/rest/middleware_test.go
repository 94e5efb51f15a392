package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwarc/cheatsheets/internal/logging"
)

type accessEntry struct {
	Msg    string `json:"msg"`
	Access string `json:"access"`
}

func accessEntries(t *testing.T, buf *bytes.Buffer) []accessEntry {
	t.Helper()
	var out []accessEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e accessEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		if e.Msg == "request" {
			out = append(out, e)
		}
	}
	return out
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	srv := NewRESTServer(Options{JWTSecret: jwtSecret}, logging.NewJSONLogger(&buf, "info"), nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	// the status comes from the error handler, not the handler's return
	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/cheatsheet/list", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	generated := resp.Header.Get("X-Request-ID")
	assert.NotEmpty(t, generated)

	entries := accessEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Access, "req-42 200 GET /health")
	assert.Contains(t, entries[1].Access, generated+" 401 GET /api/cheatsheet/list")
}
