package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"response":"The exam is on Friday."}`))
	}))
	defer srv.Close()

	c := rest.New(srv.URL+"/chat", rest.WithHTTPClient(srv.Client()))
	answer, err := c.Answer(context.Background(), campus.Question{
		Message: "When is the exam?",
		Year:    campus.Year3,
		Persona: campus.PersonaProfessor,
		Token:   "id-token",
	})
	require.NoError(t, err)
	assert.Equal(t, "The exam is on Friday.", answer)

	var body map[string]string
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, map[string]string{
		"message": "When is the exam?",
		"year":    "3",
		"mode":    "The Professor",
		"token":   "id-token",
	}, body)
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom", "HTTP 500: boom"},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"bad token"}`, "HTTP 401"},
		{"malformed json", http.StatusOK, `{"response":`, "decode reply"},
		{"missing field", http.StatusOK, `{"answer":"hi"}`, "no response field"},
		{"null field", http.StatusOK, `{"response":null}`, "no response field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := rest.New(srv.URL).Answer(context.Background(), campus.Question{Message: "hi"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_EmptyAnswerIsValid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	answer, err := rest.New(srv.URL).Answer(context.Background(), campus.Question{Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestClient_ContextCancel(t *testing.T) {
	t.Parallel()

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

	_, err := rest.New(srv.URL).Answer(ctx, campus.Question{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_NoDefaultTimeout(t *testing.T) {
	t.Parallel()

	assert.Zero(t, rest.HTTPClient(rest.New("http://localhost:8000/chat")).Timeout)

	custom := &http.Client{Timeout: time.Second}
	assert.Same(t, custom, rest.HTTPClient(rest.New("http://localhost:8000/chat", rest.WithHTTPClient(custom))))
}

func TestClient_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := rest.New(url).Answer(context.Background(), campus.Question{Message: "hi"})
	require.Error(t, err)
}
