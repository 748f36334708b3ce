package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipartner/api/internal/history"
)

// solverServer answers every request with explanation and records payloads.
func solverServer(t *testing.T, explanation string) (*httptest.Server, func() []map[string]any) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"explanation": explanation})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		return append([]map[string]any(nil), seen...)
	}
}

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", db, "--style", "notty"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_AskFollowUpHistory(t *testing.T) {
	srv, seen := solverServer(t, "The answer is 4")
	t.Setenv("INFERENCE_URL", srv.URL)
	t.Setenv("STORE", "")
	db := filepath.Join(t.TempDir(), "cli.db")

	out, err := run(t, db, "ask", "2+2=?")
	require.NoError(t, err)
	assert.Contains(t, out, "The answer is 4")
	assert.Contains(t, out, "2+2=?")

	_, err = run(t, db, "ask", "why", "four?")
	require.NoError(t, err)

	payloads := seen()
	require.Len(t, payloads, 2)
	assert.NotContains(t, payloads[0], "context")
	ctx, ok := payloads[1]["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, ctx["isFollowUp"])
	assert.Equal(t, "why four?", payloads[1]["problem"])

	out, err = run(t, db, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "↪ why four?")
	assert.Contains(t, lines[1], "2+2=?")

	_, err = run(t, db, "new")
	require.NoError(t, err)
	_, err = run(t, db, "ask", "3+3=?")
	require.NoError(t, err)
	assert.NotContains(t, seen()[2], "context")

	out, err = run(t, db, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared.")
	out, err = run(t, db, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "History is empty.")
}

func TestCLI_Replay(t *testing.T) {
	srv, seen := solverServer(t, "x = 2")
	t.Setenv("INFERENCE_URL", srv.URL)
	t.Setenv("STORE", "")
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := run(t, db, "ask", "x+1=3")
	require.NoError(t, err)

	out, err := run(t, db, "history")
	require.NoError(t, err)
	id := strings.Fields(out)[0]

	out, err = run(t, db, "replay", id)
	require.NoError(t, err)
	assert.Contains(t, out, "x = 2")
	assert.Contains(t, out, "From history")
	assert.Len(t, seen(), 1)

	_, err = run(t, db, "replay", "42")
	assert.Error(t, err)
}

func TestCLI_ErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("INFERENCE_URL", srv.URL)
	t.Setenv("STORE", "")
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := run(t, db, "ask", "q")
	require.Error(t, err)
	assert.Equal(t, "Error 503: overloaded", err.Error())

	_, err = run(t, db, "ask")
	assert.EqualError(t, err, "give a problem as text or with --image")

	t.Setenv("INFERENCE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	_, err = run(t, db, "history")
	assert.Error(t, err)
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	writeHistory(&buf, []history.Item{{ID: "17", Problem: "long\nproblem", Timestamp: 0, IsFollowUp: true}})
	assert.True(t, strings.HasPrefix(buf.String(), "17  "))
	assert.Contains(t, buf.String(), "↪ long problem")
	assert.Equal(t, "abc…", oneLine("abcdef", 4))
}
