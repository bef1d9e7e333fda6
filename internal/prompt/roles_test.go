package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      Role
	}{
		{"history question", "When did the cough start?", RoleInformant},
		{"empathy", "That sounds really hard. How is she sleeping?", RoleInformant},
		{"empty", "", RoleInformant},
		{"order labs", "I'd like to order labs and a blood gas", RoleDataProvider},
		{"xray", "Please get an X-ray of the chest", RoleDataProvider},
		{"vitals", "Let's check vitals first", RoleDataProvider},
		{"start iv", "Nurse, start an IV", RoleDataProvider},
		{"case-insensitive", "ORDER LABS NOW", RoleDataProvider},
		{"final diagnosis", "The diagnosis is bronchiolitis", RoleEvaluator},
		{"admit", "I am admitting for observation", RoleEvaluator},
		{"discharge", "Disposition is discharge home with strict return precautions", RoleEvaluator},
		{"diagnosis outranks data request", "The diagnosis is pneumonia, order labs to confirm", RoleEvaluator},
		{"mentioning labs in a question", "Did the pediatrician run any lab results before?", RoleDataProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.utterance))
		})
	}
}

func TestRoleDirective(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleInformant, "THE PARENT"},
		{RoleDataProvider, "THE PROCTOR / EMR"},
		{RoleEvaluator, "THE GRADER"},
		{Role("unknown"), "THE PARENT"},
	}
	for _, tt := range tests {
		directive := RoleDirective(tt.role)
		assert.Contains(t, directive, "ACTIVE ROLE")
		assert.Contains(t, directive, tt.want)
	}
}
