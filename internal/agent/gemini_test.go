package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiRoleMapping(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want genai.Role
	}{
		{"user", Message{Role: RoleUser, Content: "hi"}, genai.RoleUser},
		{"assistant", Message{Role: RoleAssistant, Content: "hello"}, genai.RoleModel},
		{"unknown coerced to user", Message{Role: "tool", Content: "x"}, genai.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geminiRole(tt.msg))
		})
	}
}

func TestNewGeminiClientValidation(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", 0)
	assert.Error(t, err)

	c, err := NewGeminiClient(context.Background(), "test-key", "", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultGeminiModel, c.model)
}
