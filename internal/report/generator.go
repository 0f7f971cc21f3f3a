package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Fields is the renderable content of one evaluation report.
type Fields struct {
	UserID        string
	TargetWord    string
	Transcription string
	Score         *float64
	Feedback      string
	Suggestions   []string
	AudioDuration time.Duration
}

// Generator renders consultation reports as PDF files on disk.
type Generator struct {
	outDir string
	log    *slog.Logger
	clock  func() time.Time
}

func NewGenerator(cfg config.ReportConfig, log *slog.Logger) *Generator {
	return &Generator{
		outDir: cfg.OutputDir,
		log:    log.With(slog.String("component", "report")),
		clock:  time.Now,
	}
}

// Render writes the report and returns its path. The default filename keeps
// a millisecond timestamp prefix and adds a uuid fragment so concurrent
// renders never collide.
func (g *Generator) Render(fields Fields, filename string) (string, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if filename == "" {
		filename = fmt.Sprintf("report-%d-%s.pdf", g.clock().UnixMilli(), uuid.NewString()[:8])
	}
	outPath := filepath.Join(g.outDir, filename)

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(50, 50, 50)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 24, tr("Relatório de Avaliação de Pronúncia"), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	userID := fields.UserID
	if userID == "" {
		userID = "N/A"
	}
	score := "N/A"
	if fields.Score != nil {
		score = strconv.FormatFloat(*fields.Score, 'f', -1, 64)
	}

	pdf.SetFont("Helvetica", "", 12)
	g.line(pdf, tr, fmt.Sprintf("Usuário: %s", userID))
	g.line(pdf, tr, fmt.Sprintf("Data: %s", g.clock().UTC().Format(time.RFC3339)))
	g.line(pdf, tr, fmt.Sprintf("Palavra alvo: %s", fields.TargetWord))
	g.line(pdf, tr, fmt.Sprintf("Transcrição: %s", fields.Transcription))
	g.line(pdf, tr, fmt.Sprintf("Score: %s", score))
	if fields.AudioDuration > 0 {
		g.line(pdf, tr, fmt.Sprintf("Duração do áudio: %s", fields.AudioDuration.Round(time.Millisecond)))
	}
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	g.line(pdf, tr, "Feedback:")
	pdf.SetFont("Helvetica", "", 12)
	feedback := fields.Feedback
	if feedback == "" {
		feedback = "Sem feedback"
	}
	pdf.MultiCell(0, 16, tr(feedback), "", "L", false)
	pdf.Ln(12)

	if len(fields.Suggestions) > 0 {
		pdf.SetFont("Helvetica", "B", 14)
		g.line(pdf, tr, "Sugestões:")
		pdf.SetFont("Helvetica", "", 12)
		for _, s := range fields.Suggestions {
			g.line(pdf, tr, fmt.Sprintf("- %s", s))
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return outPath, nil
}

func (g *Generator) line(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.CellFormat(0, 16, tr(text), "", 1, "L", false, 0, "")
}
