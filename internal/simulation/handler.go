package simulation

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pedsim-trainer/internal/session"
)

// Handler exposes the simulation service over JSON HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the API onto a chi router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/cases", h.ListCases)
	r.Post("/cases/refresh", h.RefreshCases)
	r.Post("/sessions", h.CreateSession)
	r.Post("/sessions/{id}/start", h.StartCase)
	r.Post("/sessions/{id}/messages", h.PostMessage)
	r.Get("/sessions/{id}/transcript", h.GetTranscript)
	r.Post("/sessions/{id}/audio", h.PostAudio)
	r.Get("/sessions/{id}/debrief.pdf", h.GetDebrief)
	r.Post("/tts", h.Synthesize)
}

type casesResponse struct {
	Cases  []string `json:"cases"`
	Notice string   `json:"notice,omitempty"`
}

// ListCases returns selectable case names. Data-source failures degrade to
// an empty list with a visible notice, never an error status.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.CaseNames(r.Context())
	resp := casesResponse{Cases: names}
	if resp.Cases == nil {
		resp.Cases = []string{}
	}
	if err != nil {
		resp.Notice = "Waiting for data... please check the case sheet connection."
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshCases forces a cache invalidate and reload.
func (h *Handler) RefreshCases(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.RefreshCases(r.Context())
	resp := casesResponse{Cases: names}
	if resp.Cases == nil {
		resp.Cases = []string{}
	}
	if err != nil {
		resp.Notice = "Refresh failed: " + err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSession registers a new session and returns its ID.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.svc.CreateSession()
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID.String()})
}

type startCaseRequest struct {
	CaseName string `json:"case_name"`
}

type turnResponse struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Role    string `json:"role"`
}

// StartCase binds a case to the session and returns the kickoff reply.
func (h *Handler) StartCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req startCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.CaseName) == "" {
		http.Error(w, "case_name is required", http.StatusBadRequest)
		return
	}

	turn, err := h.svc.StartCase(r.Context(), id, req.CaseName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(turn))
}

type messageRequest struct {
	Text string `json:"text"`
}

// PostMessage processes one typed user turn.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	turn, err := h.svc.SendMessage(r.Context(), id, req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(turn))
}

// GetTranscript returns the session's turns in append order.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.Session(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	turns := sess.Turns()
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, toTurnResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": out})
}

// PostAudio accepts a recorded utterance, transcribes it, and processes it
// as a turn. A non-empty "text" form field takes precedence over the
// recording. The reply audio is attached base64-encoded when synthesis
// succeeds; synthesis failure degrades to text-only.
func (h *Handler) PostAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		file, _, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, "Provide either text or an audio file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
			return
		}
		text, err = h.svc.Transcribe(r.Context(), buf.Bytes())
		if err != nil {
			h.writeError(w, err)
			return
		}
	}

	if text == "" {
		// Silence or cancelled recording: nothing to process.
		writeJSON(w, http.StatusOK, map[string]string{"text": "", "reply": ""})
		return
	}

	turn, err := h.svc.SendMessage(r.Context(), id, text)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var audioBase64 string
	lang := strings.TrimSpace(r.FormValue("lang"))
	if audioData, err := h.svc.Synthesize(r.Context(), turn.Text, lang); err == nil {
		audioBase64 = base64.StdEncoding.EncodeToString(audioData)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"text":         text,
		"reply":        turn.Text,
		"role":         string(turn.Role),
		"audio_base64": audioBase64,
	})
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

// Synthesize converts reply text to MP3 audio.
func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	audioData, err := h.svc.Synthesize(r.Context(), req.Text, req.Lang)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audioData)
}

// GetDebrief streams the debrief PDF for a session.
func (h *Handler) GetDebrief(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	pdfData, err := h.svc.Debrief(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="debrief.pdf"`)
	w.Write(pdfData)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors onto status codes. Model failures are 502
// notices: the user's turn is already retained and the session stays usable.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, ErrCaseNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoActiveCase):
		writeJSONError(w, http.StatusConflict, "Select a case before sending messages")
	case errors.Is(err, ErrModelFailure):
		writeJSONError(w, http.StatusBadGateway, "AI Error: "+err.Error())
	case errors.Is(err, ErrSpeechUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "Speech service not configured")
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func toTurnResponse(t session.Turn) turnResponse {
	return turnResponse{Speaker: string(t.Speaker), Text: t.Text, Role: string(t.Role)}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
