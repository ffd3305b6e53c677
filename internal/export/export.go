// Package export renders a task document as a standalone report.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/ldi/devflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// Formats lists the formats Export understands.
var Formats = []string{"json", "yaml", "csv", "pdf"}

// Export renders doc in the given format.
func Export(ctx context.Context, doc models.Document, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Tasks == nil {
		doc.Tasks = []models.Task{}
	}

	switch strings.ToLower(format) {
	case "json":
		data, err := models.MarshalIndent(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return data, nil
	case "csv":
		return exportCSV(doc)
	case "pdf":
		return exportPDF(doc)
	default:
		return nil, fmt.Errorf("unknown format %s", format)
	}
}

func exportCSV(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "title", "status", "createdAt", "completedAt", "snoozedUntil", "description"})
	for _, t := range doc.Tasks {
		_ = w.Write([]string{t.ID, t.Title, string(t.Status), t.CreatedAt, t.CompletedAt, t.SnoozedUntil, t.Description})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func exportPDF(doc models.Document) ([]byte, error) {
	summary := models.Summarize(doc.Tasks)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("DevFlow Task Report", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "DevFlow Task Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 9)
	if doc.LastUpdated != "" {
		pdf.Cell(0, 5, "Last updated: "+doc.LastUpdated)
		pdf.Ln(6)
	}
	pdf.Cell(0, 5, fmt.Sprintf("Total %d  pending %d  in progress %d  done %d  snoozed %d",
		summary.Total, summary.Pending, summary.InProgress, summary.Done, summary.Snoozed))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	for _, t := range doc.Tasks {
		line := fmt.Sprintf("[%s] %-11s %s", t.ID, t.Status, t.Title)
		switch {
		case t.Status == models.TaskStatusSnoozed && t.SnoozedUntil != "":
			line += " (until " + t.SnoozedUntil + ")"
		case t.Status == models.TaskStatusDone && t.CompletedAt != "":
			line += " (completed " + t.CompletedAt + ")"
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
		if t.Description != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(0, 5, tr("    "+t.Description), "0", "L", false)
			pdf.SetFont("Arial", "", 10)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
