package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pedsim-trainer/internal/agent"
	"pedsim-trainer/internal/casebank"
	"pedsim-trainer/internal/config"
	"pedsim-trainer/internal/platform/telegram"
	"pedsim-trainer/internal/report"
	"pedsim-trainer/internal/session"
	"pedsim-trainer/internal/simulation"
)

func main() {
	// 1. Configuration (startup-fatal when incomplete)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// 2. Clients
	var model agent.ModelClient
	switch cfg.ModelProvider {
	case "openai":
		model, err = agent.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ModelName, cfg.ModelTimeout)
	default:
		model, err = agent.NewGeminiClient(context.Background(), cfg.GoogleAPIKey, cfg.ModelName, cfg.ModelTimeout)
	}
	if err != nil {
		log.Fatalf("model client init failed: %v", err)
	}

	var tts agent.TTSClient
	if cfg.ElevenLabsAPIKey != "" {
		tts = agent.NewElevenLabsClient(cfg.ElevenLabsAPIKey)
	} else {
		logger.Info("ELEVENLABS_API_KEY not set, audio replies disabled")
	}

	var stt agent.STTClient
	if cfg.STTServiceURL != "" {
		stt = agent.NewWhisperClient(cfg.STTServiceURL)
	} else {
		logger.Info("STT_SERVICE_URL not set, voice input disabled")
	}

	var tgClient report.TelegramClient
	if cfg.TelegramBotToken != "" {
		tgClient = telegram.NewClient(cfg.TelegramBotToken)
	}
	if cfg.InstructorChatID == 0 {
		logger.Info("INSTRUCTOR_CHAT_ID not set, instructor notifications disabled")
	}

	// 3. Services
	loader := casebank.NewLoader(cfg.SheetURL(), logger)
	cache := casebank.NewCache(loader, cfg.CacheTTL)
	store := session.NewStore()
	reportSvc := report.NewService(tgClient, cfg.InstructorChatID, logger)
	svc := simulation.NewService(cache, store, model, tts, stt, reportSvc, cfg.TranscriptWindow, logger)
	handler := simulation.NewHandler(svc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the browser frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		simulation.RegisterRoutes(r, handler)
	})

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("provider", cfg.ModelProvider))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
