package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/blux/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCard(t *testing.T) {
	tests := []struct {
		name      string
		msg       Message
		wantName  string
		wantValue string
	}{
		{
			name:      "success",
			msg:       Message{Status: core.StatusSuccess, Message: "10 rows", ErrorMessage: "ignored"},
			wantName:  "Message",
			wantValue: "10 rows",
		},
		{
			name:      "failed quotes error",
			msg:       Message{Status: core.StatusFailed, Message: "ignored", ErrorMessage: `bad "row"`},
			wantName:  "Error Message",
			wantValue: `"bad \"row\""`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := buildCard(tt.msg, DefaultActivityImage)
			require.NoError(t, err)
			require.Len(t, c.Sections, 2)
			assert.Equal(t, tt.msg.Status, c.Sections[0].ActivityTitle)
			assert.Equal(t, DefaultActivityImage, c.Sections[0].ActivityImage)
			assert.Equal(t, "Output", c.Sections[1].Title)
			require.Len(t, c.Sections[1].Facts, 1)
			assert.Equal(t, tt.wantName, c.Sections[1].Facts[0].Name)
			assert.Equal(t, tt.wantValue, c.Sections[1].Facts[0].Value)
		})
	}
}

func TestWebhook_Posts(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Notify(context.Background(), Message{
		Title:            "Nightly load",
		Text:             "sales",
		Status:           core.StatusSuccess,
		Message:          "done",
		ActivitySubtitle: "today",
	})
	require.NoError(t, err)

	assert.Equal(t, "Nightly load", got["title"])
	assert.Equal(t, "sales", got["text"])
	sections := got["sections"].([]any)
	require.Len(t, sections, 2)
	activity := sections[0].(map[string]any)
	assert.Equal(t, "SUCCESS", activity["activityTitle"])
	assert.Equal(t, "today", activity["activitySubtitle"])
}

func TestWebhook_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithRetries(3, time.Millisecond)).Notify(context.Background(), Message{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithRetries(2, time.Millisecond)).Notify(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, WithRetries(5, time.Millisecond)).Notify(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
