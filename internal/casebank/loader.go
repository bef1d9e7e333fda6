package casebank

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSchemaMismatch is returned when the source table has no recognizable
// case-name column even after header normalization. Callers surface it as a
// notice and continue with an empty bank.
var ErrSchemaMismatch = errors.New("case source schema mismatch: no Case_Name column")

// headerRenames maps historical and misspelled column headers seen in the
// source sheet to their canonical names. The sheet is fed by a form whose
// question titles have drifted over time; this table absorbs that drift.
var headerRenames = map[string]string{
	"Case Name":         "Case_Name",
	"Hidden Diagnosis":  "Hidden_Diagnosis",
	"Parent Persona":    "Parent_Persona",
	"Parent_Personae":   "Parent_Persona", // long-standing typo in the form
	"Chief Complaint":   "Chief_Complaint",
	"HPI Timeline":      "HPI_Timeline",
	"Symptom Visuals":   "Symptom_Visuals",
	"Symptom Behavior":  "Symptom_Behavior",
	"Medical History":   "Medical_History",
	"Jargon Triggers":   "Jargon_Triggers",
	"Lab Results":       "Lab_Results",
	"Imaging Results":   "Imaging_Results",
	"Correct Mgmt":      "Correct_Mgmt",
	"Critical Pitfalls": "Critical_Pitfalls",
	"Educational Pearl": "Educational_Pearl",
}

// columnSetters assigns a canonical column's cell value onto a record.
var columnSetters = map[string]func(*CaseRecord, string){
	"Case_Name":         func(r *CaseRecord, v string) { r.Name = v },
	"Hidden_Diagnosis":  func(r *CaseRecord, v string) { r.HiddenDiagnosis = v },
	"Parent_Persona":    func(r *CaseRecord, v string) { r.ParentPersona = v },
	"Chief_Complaint":   func(r *CaseRecord, v string) { r.ChiefComplaint = v },
	"HPI_Timeline":      func(r *CaseRecord, v string) { r.HPITimeline = v },
	"Symptom_Visuals":   func(r *CaseRecord, v string) { r.SymptomVisuals = v },
	"Symptom_Behavior":  func(r *CaseRecord, v string) { r.SymptomBehavior = v },
	"Medical_History":   func(r *CaseRecord, v string) { r.MedicalHistory = v },
	"Medications":       func(r *CaseRecord, v string) { r.Medications = v },
	"Jargon_Triggers":   func(r *CaseRecord, v string) { r.JargonTriggers = v },
	"Lab_Results":       func(r *CaseRecord, v string) { r.LabResults = v },
	"Imaging_Results":   func(r *CaseRecord, v string) { r.ImagingResults = v },
	"Correct_Mgmt":      func(r *CaseRecord, v string) { r.CorrectMgmt = v },
	"Critical_Pitfalls": func(r *CaseRecord, v string) { r.CriticalPitfalls = v },
	"Educational_Pearl": func(r *CaseRecord, v string) { r.EducationalPearl = v },
}

// Loader fetches the case table from its CSV export URL and normalizes it
// into a CaseBank.
type Loader struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewLoader constructs a Loader for the given CSV export URL.
func NewLoader(url string, log *zap.Logger) *Loader {
	return &Loader{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Load fetches and parses the case table. Malformed rows are skipped rather
// than failing the load; rows without a case name are dropped. A missing
// Case_Name column yields an empty bank and ErrSchemaMismatch.
func (l *Loader) Load(ctx context.Context) (*CaseBank, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch case sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch case sheet: unexpected status %s", resp.Status)
	}

	return l.parse(resp.Body)
}

func (l *Loader) parse(r io.Reader) (*CaseBank, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	columns := normalizeHeaders(rawHeader)
	nameIdx := -1
	for i, col := range columns {
		if col == "Case_Name" {
			nameIdx = i
			break
		}
	}
	if nameIdx == -1 {
		return NewCaseBank(nil), ErrSchemaMismatch
	}

	var records []CaseRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Bad row, not a bad table. Skip it and keep going.
			l.log.Warn("skipping malformed case row", zap.Error(err))
			continue
		}

		var rec CaseRecord
		for i, cell := range row {
			if i >= len(columns) {
				break
			}
			if set, ok := columnSetters[columns[i]]; ok {
				set(&rec, strings.TrimSpace(cell))
			}
		}
		if rec.Name == "" {
			continue
		}
		records = append(records, rec)
	}

	return NewCaseBank(records), nil
}

// normalizeHeaders applies the rename table and trims whitespace so minor
// sheet edits don't break column matching.
func normalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if canonical, ok := headerRenames[h]; ok {
			h = canonical
		}
		out[i] = h
	}
	return out
}
