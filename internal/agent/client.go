// Package agent holds the narrow clients for external services: the model
// gateway, speech synthesis, and speech capture. Each is consumed through a
// small interface so the simulation service can be tested with fakes.
package agent

import "context"

// Message is one entry of the role-tagged list sent to the model. Role is
// "user" or "assistant"; the instruction travels separately, and gateway
// implementations map these onto their provider's wire roles.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelClient is the inference boundary. The instruction is rebuilt by the
// caller and resent in full on every call; the provider is treated as
// stateless across calls.
type ModelClient interface {
	Generate(ctx context.Context, instruction string, history []Message) (string, error)
}

// TTSClient synthesizes speech for a reply. The lang argument is a target
// language tag ("en", "es-MX"); implementations pick a matching voice.
// Failures degrade to text-only display at the call site.
type TTSClient interface {
	Synthesize(ctx context.Context, text string, lang string) ([]byte, error)
}

// STTClient transcribes recorded audio. An empty transcript means silence or
// a cancelled recording.
type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
}
