// Package simulation orchestrates one interactive encounter: case selection,
// turn processing through the model gateway, and the optional speech and
// debrief paths.
package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pedsim-trainer/internal/agent"
	"pedsim-trainer/internal/casebank"
	"pedsim-trainer/internal/prompt"
	"pedsim-trainer/internal/report"
	"pedsim-trainer/internal/session"
)

var (
	// ErrCaseNotFound means the requested case name is not in the current bank.
	ErrCaseNotFound = errors.New("case not found")

	// ErrModelFailure wraps transport or API errors from the model gateway.
	// The triggering user turn stays in the transcript; no reply is appended.
	ErrModelFailure = errors.New("model call failed")

	// ErrSpeechUnavailable means the optional speech service is not configured.
	ErrSpeechUnavailable = errors.New("speech service not configured")
)

// Service wires the case cache, session store, and external clients into the
// per-turn flow. The TTS and STT clients may be nil; their endpoints then
// report ErrSpeechUnavailable.
type Service struct {
	cache     *casebank.Cache
	store     *session.Store
	model     agent.ModelClient
	tts       agent.TTSClient
	stt       agent.STTClient
	reportSvc *report.Service
	window    int
	log       *zap.Logger
}

func NewService(cache *casebank.Cache, store *session.Store, model agent.ModelClient, tts agent.TTSClient, stt agent.STTClient, reportSvc *report.Service, window int, log *zap.Logger) *Service {
	if window < 1 {
		window = 40
	}
	return &Service{
		cache:     cache,
		store:     store,
		model:     model,
		tts:       tts,
		stt:       stt,
		reportSvc: reportSvc,
		window:    window,
		log:       log,
	}
}

// CaseNames lists selectable cases from the cached bank. A load failure
// yields an empty list plus the error; callers surface it as a notice.
func (s *Service) CaseNames(ctx context.Context) ([]string, error) {
	bank, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn("case bank load failed", zap.Error(err))
		return nil, err
	}
	return bank.Names(), nil
}

// RefreshCases drops the cache and reloads immediately.
func (s *Service) RefreshCases(ctx context.Context) ([]string, error) {
	s.cache.Invalidate()
	return s.CaseNames(ctx)
}

// CreateSession registers a new empty session.
func (s *Service) CreateSession() *session.Session {
	return s.store.Create()
}

// Session looks up a live session.
func (s *Service) Session(id uuid.UUID) (*session.Session, error) {
	return s.store.Get(id)
}

// StartCase binds the named case to the session, clears any previous
// transcript, and asks the model for the kickoff reply in which the parent
// states the chief complaint unprompted. A model failure leaves the session
// bound with an empty transcript, ready for retry.
func (s *Service) StartCase(ctx context.Context, sessionID uuid.UUID, caseName string) (session.Turn, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return session.Turn{}, err
	}

	bank, err := s.cache.Get(ctx)
	if err != nil {
		return session.Turn{}, err
	}
	rec, ok := bank.Get(caseName)
	if !ok {
		return session.Turn{}, fmt.Errorf("%w: %q", ErrCaseNotFound, caseName)
	}

	sess.Reset(rec)

	reply, err := s.model.Generate(ctx, prompt.Build(rec), nil)
	if err != nil {
		s.log.Warn("kickoff generation failed", zap.String("case", caseName), zap.Error(err))
		return session.Turn{}, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	turn := session.Turn{Speaker: session.SpeakerAgent, Text: reply, Role: prompt.RoleInformant}
	if err := sess.Append(turn); err != nil {
		return session.Turn{}, err
	}
	return turn, nil
}

// SendMessage processes one user turn: classify the role, append the user
// turn, rebuild the instruction from the active case with the active-role
// directive appended, and call the model with the instruction plus a sliding
// window of recent turns. On model failure the user turn is retained and no
// reply is appended.
func (s *Service) SendMessage(ctx context.Context, sessionID uuid.UUID, text string) (session.Turn, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return session.Turn{}, err
	}
	rec, ok := sess.ActiveCase()
	if !ok {
		return session.Turn{}, session.ErrNoActiveCase
	}

	role := prompt.Classify(text)
	if err := sess.Append(session.Turn{Speaker: session.SpeakerUser, Text: text, Role: role}); err != nil {
		return session.Turn{}, err
	}

	history := s.windowedHistory(sess.Turns())
	instruction := prompt.Build(rec) + prompt.RoleDirective(role)
	reply, err := s.model.Generate(ctx, instruction, history)
	if err != nil {
		s.log.Warn("model call failed", zap.String("session", sessionID.String()), zap.Error(err))
		return session.Turn{}, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	turn := session.Turn{Speaker: session.SpeakerAgent, Text: reply, Role: role}
	if err := sess.Append(turn); err != nil {
		return session.Turn{}, err
	}

	if role == prompt.RoleEvaluator && s.reportSvc != nil {
		// Fire-and-forget; delivery failures never touch the session.
		go s.reportSvc.NotifyInstructor(rec, sess.Turns())
	}

	return turn, nil
}

// windowedHistory keeps request size bounded: only the most recent turns
// accompany the always-included instruction block. Long-range recall is
// traded for a bounded request cost.
func (s *Service) windowedHistory(turns []session.Turn) []agent.Message {
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	history := make([]agent.Message, 0, len(turns))
	for _, t := range turns {
		role := agent.RoleUser
		if t.Speaker == session.SpeakerAgent {
			role = agent.RoleAssistant
		}
		history = append(history, agent.Message{Role: role, Content: t.Text})
	}
	return history
}

// Synthesize converts reply text to audio via the optional TTS client. The
// lang tag selects the voice; empty means the default English voice.
func (s *Service) Synthesize(ctx context.Context, text string, lang string) ([]byte, error) {
	if s.tts == nil {
		return nil, ErrSpeechUnavailable
	}
	return s.tts.Synthesize(ctx, text, lang)
}

// Transcribe converts a recording to text via the optional STT client.
func (s *Service) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	if s.stt == nil {
		return "", ErrSpeechUnavailable
	}
	return s.stt.Transcribe(ctx, audioData)
}

// Debrief renders the session's transcript as a PDF. The answer key appears
// only when the grader fired during the encounter.
func (s *Service) Debrief(sessionID uuid.UUID) ([]byte, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	rec, ok := sess.ActiveCase()
	if !ok {
		return nil, session.ErrNoActiveCase
	}
	return s.reportSvc.BuildDebriefPDF(rec, sess.Turns(), sess.Evaluated())
}
