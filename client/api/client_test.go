package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truco-table/client/snapshot"
)

func newEngine(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second)
}

func TestStartSendsTargetScore(t *testing.T) {
	var got map[string]any
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, startPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"started"}`))
	})

	require.NoError(t, c.Start(context.Background(), 15))
	assert.Equal(t, float64(15), got["target_score"])
}

func TestPollDecodesSnapshot(t *testing.T) {
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, statePath, r.URL.Path)
		_, _ = w.Write([]byte(`{"phase":"round_end","round_winners":[1,1],"log":["a","b"]}`))
	})

	s, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot.RoundEnd, s.Phase)
	assert.Equal(t, []string{"a", "b"}, s.Log)
}

func TestPollNotOKIsTransportError(t *testing.T) {
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No game active"}`))
	})

	_, err := c.Poll(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "poll", te.Op)
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.Contains(t, te.Error(), "No game active")
}

func TestPollBadPayloadIsTransportError(t *testing.T) {
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"phase":`))
	})

	_, err := c.Poll(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusOK, te.Status)
}

func TestActRejectionIsActionError(t *testing.T) {
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Action string `json:"action"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "call_retruco", body.Action)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid action"}`))
	})

	err := c.Act(context.Background(), "call_retruco")
	var ae *ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Invalid action", ae.Message)
	assert.Equal(t, "call_retruco", ae.Action)
}

func TestActServerFailureIsTransportError(t *testing.T) {
	calls := 0
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.Act(context.Background(), "call_truco")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "act", te.Op)
	assert.Equal(t, 1, calls, "no automatic retry")
}

func TestUnreachableEngine(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, 200*time.Millisecond)
	err := c.Start(context.Background(), 30)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.Status)
	assert.NotNil(t, errors.Unwrap(te))
}

func TestEngineMessageFallback(t *testing.T) {
	assert.Equal(t, "plain text", engineMessage([]byte(" plain text ")))
	assert.Equal(t, "no details", engineMessage(nil))
	assert.Equal(t, "x", engineMessage([]byte(`{"error":"x"}`)))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("ñ", 300)
	out := truncate(s, 200)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 200, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "mañana", truncate("mañana", 200))
	assert.Equal(t, "ña", truncate("ñandú", 2))
}

func TestOversizedBodyIsCut(t *testing.T) {
	c := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"phase":"playing","log":["`))
		_, _ = w.Write([]byte(strings.Repeat("a", maxBody)))
		_, _ = w.Write([]byte(`"]}`))
	})

	_, err := c.Poll(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusOK, te.Status)
}
