package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsAPIURL = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsModel  = "eleven_multilingual_v2"

	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel
)

// voiceByLanguage maps a primary language subtag onto an ElevenLabs premade
// voice. The multilingual model speaks whatever language the text is in; the
// voice choice only shapes accent and timbre.
var voiceByLanguage = map[string]string{
	"en": defaultVoiceID,
	"es": "AZnzlk1XvdvUeBnXmlld", // Domi
	"de": "ErXwobaYiN019PkySvjV", // Antoni
}

type elevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient builds a TTSClient backed by the ElevenLabs API.
func NewElevenLabsClient(apiKey string) TTSClient {
	return &elevenLabsClient{
		apiKey:  apiKey,
		baseURL: elevenLabsAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

// voiceFor resolves a language tag ("es", "en-US", "") to a voice ID.
// Unmapped or empty tags fall back to the default English voice.
func voiceFor(lang string) string {
	primary, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(lang)), "-")
	if id, ok := voiceByLanguage[primary]; ok {
		return id
	}
	return defaultVoiceID
}

// Synthesize converts text to MP3 audio, picking a voice for the target
// language tag.
func (c *elevenLabsClient) Synthesize(ctx context.Context, text string, lang string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, voiceFor(lang))

	reqBody := ttsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
	}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.75

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API error: %s - %s", resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}
