package prompt

import "strings"

// Role tags which behavioral mode a turn activates. The instruction text
// describes the same triggers to the model in natural language; this local
// tag is what the server trusts when deciding which case data a turn may
// surface (and when the evaluator has fired).
type Role string

const (
	RoleInformant    Role = "informant"
	RoleDataProvider Role = "data_provider"
	RoleEvaluator    Role = "evaluator"
)

// dataProviderPhrases are commands for objective data: examinations, labs,
// imaging, vitals, interventions.
var dataProviderPhrases = []string{
	"order lab",
	"order labs",
	"get labs",
	"check labs",
	"lab results",
	"order a cbc",
	"order cbc",
	"blood work",
	"bloodwork",
	"get x-ray",
	"get an x-ray",
	"order x-ray",
	"order an x-ray",
	"chest x-ray",
	"order imaging",
	"get imaging",
	"order ct",
	"order an mri",
	"order mri",
	"ultrasound",
	"check vitals",
	"vital signs",
	"check the vitals",
	"start iv",
	"start an iv",
	"physical exam",
	"examine the patient",
	"auscultate",
}

// evaluatorPhrases assert a final diagnosis or disposition.
var evaluatorPhrases = []string{
	"the diagnosis is",
	"my diagnosis is",
	"final diagnosis",
	"my final diagnosis",
	"i am admitting",
	"i'm admitting",
	"admit for",
	"admitting for",
	"i am discharging",
	"i'm discharging",
	"discharge home",
	"disposition is",
	"my plan is to admit",
	"i diagnose",
	"this is a case of",
}

// RoleDirective renders the steering block appended to the instruction on
// each turn, telling the model which role the local classifier activated.
// The model still sees the trigger descriptions in the instruction body; the
// directive pins the choice so the server and the model agree on which data
// block the reply may expose.
func RoleDirective(r Role) string {
	switch r {
	case RoleDataProvider:
		return "\n\n### ACTIVE ROLE\nThe student's latest message requests objective data. Respond as THE PROCTOR / EMR."
	case RoleEvaluator:
		return "\n\n### ACTIVE ROLE\nThe student's latest message states a final diagnosis or disposition. Respond as THE GRADER."
	default:
		return "\n\n### ACTIVE ROLE\nRespond as THE PARENT."
	}
}

// Classify maps a user utterance to the role it should activate. Evaluator
// phrasing outranks data requests when both appear in one utterance, since a
// stated diagnosis ends the encounter. Anything unrecognized stays with the
// informant.
func Classify(utterance string) Role {
	u := strings.ToLower(utterance)
	for _, p := range evaluatorPhrases {
		if strings.Contains(u, p) {
			return RoleEvaluator
		}
	}
	for _, p := range dataProviderPhrases {
		if strings.Contains(u, p) {
			return RoleDataProvider
		}
	}
	return RoleInformant
}
