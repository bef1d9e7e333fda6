package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup. The model credential
// and the sheet coordinates are required; the speech and notification
// settings are optional and their features switch off when absent.
type Config struct {
	Port string

	// Model gateway
	ModelProvider string // "gemini" (default) or "openai"
	GoogleAPIKey  string
	OpenAIAPIKey  string
	ModelName     string
	ModelTimeout  time.Duration

	// Case bank source
	SheetID  string
	SheetGID string
	CacheTTL time.Duration

	// Transcript window sent per model call
	TranscriptWindow int

	// Optional speech services
	ElevenLabsAPIKey string
	STTServiceURL    string

	// Optional instructor notifications
	TelegramBotToken string
	InstructorChatID int64
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration from the environment, consulting a .env file when
// one is present. It is a singleton; the first call wins.
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		// .env is optional; real deployments set the environment directly.
		_ = godotenv.Load()
		cfg, err = fromEnv()
	})
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration failed to load")
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	c := &Config{
		Port:             getenvDefault("PORT", "8080"),
		ModelProvider:    getenvDefault("MODEL_PROVIDER", "gemini"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ModelName:        os.Getenv("MODEL_NAME"),
		ModelTimeout:     durationEnv("MODEL_TIMEOUT", 60*time.Second),
		SheetID:          os.Getenv("SHEET_ID"),
		SheetGID:         os.Getenv("GID"),
		CacheTTL:         durationEnv("CASE_CACHE_TTL", 60*time.Second),
		TranscriptWindow: intEnv("TRANSCRIPT_WINDOW", 40),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		STTServiceURL:    os.Getenv("STT_SERVICE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if idStr := os.Getenv("INSTRUCTOR_CHAT_ID"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid INSTRUCTOR_CHAT_ID %q: %w", idStr, err)
		}
		c.InstructorChatID = id
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.ModelProvider {
	case "gemini":
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY must be set")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set when MODEL_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.ModelProvider)
	}
	if c.SheetID == "" {
		return fmt.Errorf("SHEET_ID must be set")
	}
	if c.SheetGID == "" {
		return fmt.Errorf("GID must be set")
	}
	if c.TranscriptWindow < 1 {
		return fmt.Errorf("TRANSCRIPT_WINDOW must be at least 1")
	}
	return nil
}

// SheetURL builds the CSV export URL for the configured sheet.
func (c *Config) SheetURL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", c.SheetID, c.SheetGID)
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
