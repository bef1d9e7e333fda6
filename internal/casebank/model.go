package casebank

// CaseRecord is one row of the case bank: a single simulated patient
// scenario. Every field besides Name is opaque free text authored by
// educators; the server never interprets medical content.
type CaseRecord struct {
	Name             string `json:"name"`
	HiddenDiagnosis  string `json:"hidden_diagnosis"`
	ParentPersona    string `json:"parent_persona"`
	ChiefComplaint   string `json:"chief_complaint"`
	HPITimeline      string `json:"hpi_timeline"`
	SymptomVisuals   string `json:"symptom_visuals"`
	SymptomBehavior  string `json:"symptom_behavior"`
	MedicalHistory   string `json:"medical_history"`
	Medications      string `json:"medications"`
	JargonTriggers   string `json:"jargon_triggers"`
	LabResults       string `json:"lab_results"`
	ImagingResults   string `json:"imaging_results"`
	CorrectMgmt      string `json:"correct_management"`
	CriticalPitfalls string `json:"critical_pitfalls"`
	EducationalPearl string `json:"educational_pearl"`
}

// CaseBank is the set of records loaded in one refresh cycle, in source
// order, indexed by name. When the source contains duplicate names the first
// occurrence wins; later rows with the same name are kept in Records but are
// unreachable through Get.
type CaseBank struct {
	records []CaseRecord
	index   map[string]int
}

// NewCaseBank builds a bank from records in order, indexing first-seen names.
func NewCaseBank(records []CaseRecord) *CaseBank {
	b := &CaseBank{
		records: records,
		index:   make(map[string]int, len(records)),
	}
	for i, r := range records {
		if _, seen := b.index[r.Name]; !seen {
			b.index[r.Name] = i
		}
	}
	return b
}

// Get returns the record for name, or false when no such case exists.
func (b *CaseBank) Get(name string) (CaseRecord, bool) {
	i, ok := b.index[name]
	if !ok {
		return CaseRecord{}, false
	}
	return b.records[i], true
}

// Names lists selectable case names in source order, without duplicates.
func (b *CaseBank) Names() []string {
	names := make([]string, 0, len(b.index))
	for i, r := range b.records {
		if b.index[r.Name] == i {
			names = append(names, r.Name)
		}
	}
	return names
}

// Len reports the number of loaded records, duplicates included.
func (b *CaseBank) Len() int { return len(b.records) }
