package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "does she have a fever", "language": "en"}`))
	}))
	defer srv.Close()

	client := NewWhisperClient(srv.URL)
	text, err := client.Transcribe(context.Background(), []byte("wav-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "does she have a fever", text)
}

func TestWhisperTranscribeSilence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "", "language": ""}`))
	}))
	defer srv.Close()

	client := NewWhisperClient(srv.URL)
	text, err := client.Transcribe(context.Background(), []byte("wav-bytes"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestWhisperTranscribeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWhisperClient(srv.URL)
	_, err := client.Transcribe(context.Background(), []byte("wav-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STT API error")
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient("", "", 0)
	assert.Error(t, err)

	c, err := NewOpenAIClient("sk-test", "", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, c.model)
}
