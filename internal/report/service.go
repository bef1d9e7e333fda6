// Package report renders a session debrief as a PDF and optionally delivers
// it to an instructor's Telegram chat once the grader has fired.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"pedsim-trainer/internal/casebank"
	"pedsim-trainer/internal/session"
)

// TelegramClient is the delivery boundary for instructor notifications.
type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service builds debrief documents. The telegram client and chat ID are
// optional; when either is missing, notifications are silently skipped.
type Service struct {
	tgClient         TelegramClient
	instructorChatID int64
	log              *zap.Logger
}

func NewService(tg TelegramClient, instructorChatID int64, log *zap.Logger) *Service {
	return &Service{
		tgClient:         tg,
		instructorChatID: instructorChatID,
		log:              log,
	}
}

// fontPaths covers common DejaVuSans locations across distros.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// BuildDebriefPDF renders the transcript of a completed (or abandoned)
// encounter. The hidden diagnosis and gold-standard management appear only
// when the grader actually fired; exporting mid-encounter must not leak the
// answer.
func (s *Service) BuildDebriefPDF(rec casebank.CaseRecord, turns []session.Turn, evaluated bool) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 18); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Simulation Debrief")
	pdf.Br(28)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Case: %s", rec.Name))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Turns: %d", len(turns)))
	pdf.Br(22)

	if evaluated {
		if err := pdf.SetFont("DejaVu", "", 13); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Case Answer Key")
		pdf.Br(16)
		if err := pdf.SetFont("DejaVu", "", 10); err != nil {
			return nil, err
		}
		writeWrapped(&pdf, fmt.Sprintf("Diagnosis: %s", rec.HiddenDiagnosis))
		writeWrapped(&pdf, fmt.Sprintf("Management: %s", rec.CorrectMgmt))
		writeWrapped(&pdf, fmt.Sprintf("Pitfalls: %s", rec.CriticalPitfalls))
		writeWrapped(&pdf, fmt.Sprintf("Pearl: %s", rec.EducationalPearl))
		pdf.Br(10)
	}

	if err := pdf.SetFont("DejaVu", "", 13); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Transcript")
	pdf.Br(16)
	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return nil, err
	}
	for _, t := range turns {
		label := "Resident"
		if t.Speaker == session.SpeakerAgent {
			label = "Simulator"
		}
		writeWrapped(&pdf, fmt.Sprintf("[%s] %s", label, t.Text))
		pdf.Br(4)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// NotifyInstructor sends a short completion notice plus the debrief PDF to
// the configured instructor chat. A missing client or chat ID is a no-op;
// delivery failures are logged, never propagated into the session.
func (s *Service) NotifyInstructor(rec casebank.CaseRecord, turns []session.Turn) {
	if s.tgClient == nil || s.instructorChatID == 0 {
		return
	}

	text := fmt.Sprintf("Case %q completed: resident stated a final diagnosis after %d turns.", rec.Name, len(turns))
	if err := s.tgClient.SendMessage(s.instructorChatID, text); err != nil {
		s.log.Warn("instructor notification failed", zap.Error(err))
		return
	}

	pdfData, err := s.BuildDebriefPDF(rec, turns, true)
	if err != nil {
		s.log.Warn("debrief PDF generation failed", zap.Error(err))
		return
	}
	fileName := fmt.Sprintf("debrief_%s.pdf", time.Now().Format("20060102_150405"))
	if err := s.tgClient.SendDocument(s.instructorChatID, pdfData, fileName); err != nil {
		s.log.Warn("debrief delivery failed", zap.Error(err))
	}
}

func writeWrapped(pdf *gopdf.GoPdf, line string) {
	lines, err := pdf.SplitText(line, 500)
	if err != nil {
		lines = []string{line}
	}
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}
