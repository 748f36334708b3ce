package inference

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Solve(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		_, _ = w.Write([]byte(`{"body":"{\"explanation\":\"4\",\"problem\":\"2+2=?\"}"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p, err := BuildRequest("2+2=?", "", nil)
	require.NoError(t, err)

	env, err := c.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "4", env.Explanation)
	assert.Equal(t, ShapeNested, env.Shape)
	assert.Equal(t, map[string]any{"input_type": "text", "problem": "2+2=?"}, gotBody)
}

func TestClient_Unsuccessful(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusInternalServerError, "model overloaded", "Error 500: model overloaded"},
		{"ok without explanation", http.StatusOK, `{"problem":"2+2=?"}`, `Error 200: {"problem":"2+2=?"}`},
		{"ok but not json", http.StatusOK, "hello", "Error 200: hello"},
		{"empty error body", http.StatusBadGateway, "", "Error 502: Bad Gateway"},
		{"error with explanation", http.StatusBadRequest, `{"explanation":"nope"}`, `Error 400: {"explanation":"nope"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Solve(context.Background(), Payload{InputType: InputText, Problem: "p"})
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.status, se.Code)
			assert.Equal(t, tc.message, se.Message())
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Solve(context.Background(), Payload{InputType: InputText, Problem: "p"})
	require.Error(t, err)
	var se *StatusError
	assert.NotErrorAs(t, err, &se)
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL, 0).Solve(ctx, Payload{InputType: InputText, Problem: "p"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusError_MessageTruncates(t *testing.T) {
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'я'
	}
	msg := (&StatusError{Code: 500, Body: string(long)}).Message()
	assert.Equal(t, len("Error 500: ")+500*len("я")+len("…"), len(msg))
}
