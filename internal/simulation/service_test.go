package simulation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pedsim-trainer/internal/agent"
	"pedsim-trainer/internal/casebank"
	"pedsim-trainer/internal/prompt"
	"pedsim-trainer/internal/session"
)

const testCSV = "Case Name,Chief Complaint,Parent Persona,Hidden Diagnosis\n" +
	"Asthma Flare,cough,Anxious mom,Asthma exacerbation\n" +
	"Sepsis,fever,Stoic dad,Septic shock\n"

type fakeModel struct {
	reply          string
	err            error
	calls          int
	gotInstruction string
	gotHistory     []agent.Message
}

func (f *fakeModel) Generate(_ context.Context, instruction string, history []agent.Message) (string, error) {
	f.calls++
	f.gotInstruction = instruction
	f.gotHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeTTS struct {
	audio   []byte
	err     error
	gotLang string
}

func (f *fakeTTS) Synthesize(_ context.Context, _ string, lang string) ([]byte, error) {
	f.gotLang = lang
	return f.audio, f.err
}

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Transcribe(context.Context, []byte) (string, error) {
	return f.text, f.err
}

func newTestService(t *testing.T, model agent.ModelClient, window int) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testCSV))
	}))
	t.Cleanup(srv.Close)

	cache := casebank.NewCache(casebank.NewLoader(srv.URL, zap.NewNop()), time.Minute)
	return NewService(cache, session.NewStore(), model, nil, nil, nil, window, zap.NewNop())
}

func TestStartCaseKickoff(t *testing.T) {
	model := &fakeModel{reply: "My baby just won't stop coughing!"}
	svc := newTestService(t, model, 40)
	sess := svc.CreateSession()

	turn, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)
	assert.Equal(t, session.SpeakerAgent, turn.Speaker)
	assert.Equal(t, prompt.RoleInformant, turn.Role)

	// The kickoff call carries the instruction and no prior turns.
	assert.Contains(t, model.gotInstruction, "cough")
	assert.Empty(t, model.gotHistory)

	turns := sess.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "My baby just won't stop coughing!", turns[0].Text)
}

func TestStartCaseUnknownName(t *testing.T) {
	svc := newTestService(t, &fakeModel{reply: "hi"}, 40)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "No Such Case")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestStartCaseResetsPriorTranscript(t *testing.T) {
	model := &fakeModel{reply: "hello"}
	svc := newTestService(t, model, 40)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), sess.ID, "how long has this been going on?")
	require.NoError(t, err)
	require.Len(t, sess.Turns(), 3)

	_, err = svc.StartCase(context.Background(), sess.ID, "Sepsis")
	require.NoError(t, err)

	turns := sess.Turns()
	require.Len(t, turns, 1)
	rec, ok := sess.ActiveCase()
	require.True(t, ok)
	assert.Equal(t, "Sepsis", rec.Name)
	// The new kickoff instruction is built from the newly bound case.
	assert.Contains(t, model.gotInstruction, "fever")
}

func TestSendMessageAppendsBothTurns(t *testing.T) {
	model := &fakeModel{reply: "She started coughing three days ago."}
	svc := newTestService(t, model, 40)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)

	turn, err := svc.SendMessage(context.Background(), sess.ID, "When did the cough start?")
	require.NoError(t, err)
	assert.Equal(t, session.SpeakerAgent, turn.Speaker)
	assert.Equal(t, prompt.RoleInformant, turn.Role)

	turns := sess.Turns()
	require.Len(t, turns, 3) // kickoff + user + reply
	assert.Equal(t, session.SpeakerUser, turns[1].Speaker)
	assert.Equal(t, "When did the cough start?", turns[1].Text)

	// The model saw the kickoff and the user turn, instruction rebuilt fresh.
	require.Len(t, model.gotHistory, 2)
	assert.Equal(t, agent.RoleAssistant, model.gotHistory[0].Role)
	assert.Equal(t, agent.RoleUser, model.gotHistory[1].Role)
	assert.Contains(t, model.gotInstruction, "Anxious mom")
	assert.Contains(t, model.gotInstruction, "THE PARENT")
}

func TestSendMessageModelFailureKeepsUserTurn(t *testing.T) {
	model := &fakeModel{reply: "kickoff"}
	svc := newTestService(t, model, 40)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)

	model.err = errors.New("transport down")
	_, err = svc.SendMessage(context.Background(), sess.ID, "hello?")
	require.ErrorIs(t, err, ErrModelFailure)

	// User turn retained, no reply appended, session still usable.
	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, session.SpeakerUser, turns[1].Speaker)

	model.err = nil
	model.reply = "sorry, what was that?"
	_, err = svc.SendMessage(context.Background(), sess.ID, "hello again")
	require.NoError(t, err)
	assert.Len(t, sess.Turns(), 4)
}

func TestSendMessageWithoutCase(t *testing.T) {
	svc := newTestService(t, &fakeModel{reply: "hi"}, 40)
	sess := svc.CreateSession()

	_, err := svc.SendMessage(context.Background(), sess.ID, "hello")
	assert.ErrorIs(t, err, session.ErrNoActiveCase)
	assert.Empty(t, sess.Turns())
}

func TestSendMessageClassifiesRoles(t *testing.T) {
	model := &fakeModel{reply: "EMR DATA: CBC unremarkable."}
	svc := newTestService(t, model, 40)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)

	turn, err := svc.SendMessage(context.Background(), sess.ID, "Order labs and check vitals")
	require.NoError(t, err)
	assert.Equal(t, prompt.RoleDataProvider, turn.Role)
	assert.Contains(t, model.gotInstruction, "THE PROCTOR / EMR")

	turn, err = svc.SendMessage(context.Background(), sess.ID, "The diagnosis is asthma exacerbation")
	require.NoError(t, err)
	assert.Equal(t, prompt.RoleEvaluator, turn.Role)
	assert.Contains(t, model.gotInstruction, "THE GRADER")
	assert.True(t, sess.Evaluated())
}

func TestWindowedHistoryCapsTranscript(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := newTestService(t, model, 4)
	sess := svc.CreateSession()

	_, err := svc.StartCase(context.Background(), sess.ID, "Asthma Flare")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.SendMessage(context.Background(), sess.ID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// Transcript grows unbounded locally, but only the most recent window
	// travels with each call.
	assert.Len(t, sess.Turns(), 11)
	assert.Len(t, model.gotHistory, 4)
	assert.Equal(t, "question 4", model.gotHistory[len(model.gotHistory)-1].Content)
}

func TestCaseNamesSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := casebank.NewCache(casebank.NewLoader(srv.URL, zap.NewNop()), time.Minute)
	svc := NewService(cache, session.NewStore(), &fakeModel{}, nil, nil, nil, 40, zap.NewNop())

	names, err := svc.CaseNames(context.Background())
	require.Error(t, err)
	assert.Empty(t, names)
}

func TestSpeechUnavailableWithoutClients(t *testing.T) {
	svc := newTestService(t, &fakeModel{}, 40)

	_, err := svc.Synthesize(context.Background(), "hello", "")
	assert.ErrorIs(t, err, ErrSpeechUnavailable)

	_, err = svc.Transcribe(context.Background(), []byte("audio"))
	assert.ErrorIs(t, err, ErrSpeechUnavailable)
}
