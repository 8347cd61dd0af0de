package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSonarServer(t *testing.T, status int, body string, inspect func(r *http.Request, payload sonarRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload sonarRequest
		require.NoError(t, json.Unmarshal(raw, &payload))
		if inspect != nil {
			inspect(r, payload)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSonarReplySuccess(t *testing.T) {
	temp := 0.4
	srv := newSonarServer(t, http.StatusOK, `{"choices":[{"message":{"content":"  Hello  "}}]}`, func(r *http.Request, payload sonarRequest) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "sonar-pro", payload.Model)
		require.Len(t, payload.Messages, 1)
		assert.Equal(t, "user", payload.Messages[0].Role)
		assert.Equal(t, "You are a compassionate mental health assistant. I feel low", payload.Messages[0].Content)
		require.NotNil(t, payload.Temperature)
		assert.Nil(t, payload.MaxTokens)
	})

	client := NewSonarClient(srv.Client(), SonarConfig{Endpoint: srv.URL, APIKey: "secret", Model: "sonar-pro", Temperature: &temp})
	reply, err := client.Reply(context.Background(), Request{Message: "I feel low"})

	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)
}

func TestSonarReplyUsesPreamble(t *testing.T) {
	srv := newSonarServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, func(_ *http.Request, payload sonarRequest) {
		assert.Equal(t, "You are a mindfulness teacher. breathe", payload.Messages[0].Content)
	})

	client := NewSonarClient(srv.Client(), SonarConfig{Endpoint: srv.URL, Model: "sonar-pro"})
	_, err := client.Reply(context.Background(), Request{Preamble: "You are a mindfulness teacher.", Message: "breathe"})
	require.NoError(t, err)
}

func TestSonarReplyNonSuccessStatus(t *testing.T) {
	srv := newSonarServer(t, http.StatusInternalServerError, "Server Error", nil)

	client := NewSonarClient(srv.Client(), SonarConfig{Endpoint: srv.URL, Model: "sonar-pro"})
	_, err := client.Reply(context.Background(), Request{Message: "hi"})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusInternalServerError, callErr.StatusCode)
	assert.Equal(t, "Server Error", callErr.Body)
	assert.Equal(t, "Error: 500 - Server Error", Describe(err))
}

func TestSonarReplyMalformedBodies(t *testing.T) {
	bodies := map[string]string{
		"invalid json":  `not json`,
		"missing field": `{"choices":[]}`,
		"empty content": `{"choices":[{"message":{"content":"   "}}]}`,
		"wrong type":    `{"choices":[{"message":{"content":42}}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newSonarServer(t, http.StatusOK, body, nil)
			client := NewSonarClient(srv.Client(), SonarConfig{Endpoint: srv.URL, Model: "sonar-pro"})

			_, err := client.Reply(context.Background(), Request{Message: "hi"})

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedReply))
			assert.Contains(t, Describe(err), "200")
		})
	}
}

func TestSonarReplyTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewSonarClient(nil, SonarConfig{Endpoint: url, Model: "sonar-pro"})
	_, err := client.Reply(context.Background(), Request{Message: "hi"})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Zero(t, callErr.StatusCode)
	assert.NotEmpty(t, callErr.Body)
	assert.Contains(t, Describe(err), "Error: ")
}

func TestSonarReplyStripsCitations(t *testing.T) {
	srv := newSonarServer(t, http.StatusOK, `{"choices":[{"message":{"content":"Try breathing slowly [1].\nSources: example.com"}}]}`, nil)

	client := NewSonarClient(srv.Client(), SonarConfig{Endpoint: srv.URL, Model: "sonar-pro", StripCitations: true})
	reply, err := client.Reply(context.Background(), Request{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "Try breathing slowly.", reply)
}
