package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/shopchat/internal/chat"
)

func TestSend_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		_, _ = w.Write([]byte(`{"reply":"Use a 220Ω resistor."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	reply, err := c.Send(context.Background(), "What resistor?", []chat.Message{
		chat.UserMessage("hi"),
		chat.AssistantMessage("hello"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Use a 220Ω resistor.", reply)
	assert.Equal(t, "What resistor?", gotBody["message"])
	assert.Equal(t, []any{
		map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		map[string]any{"role": "assistant", "parts": []any{map[string]any{"text": "hello"}}},
	}, gotBody["history"])
}

func TestSend_EmptyHistoryIsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":"hi","history":[]}`, string(b))
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Send(context.Background(), "hi", nil)
	require.NoError(t, err)
}

func TestSend_EmptyReplyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, nil).Send(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"reply":"Error: upstream down"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Send(context.Background(), "hi", nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "Error: upstream down", statusErr.Reply)
}

func TestSend_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Send(context.Background(), "hi", nil)
	assert.Error(t, err)
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, nil).Send(ctx, "hi", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSend_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Send(context.Background(), "hi", nil)
	assert.Error(t, err)
}
