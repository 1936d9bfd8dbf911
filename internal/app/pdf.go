package app

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/pagesum/pagesum/internal/cache"
)

// writeSummaryPDF renders a one-page PDF of a summary record: title, a
// clickable source link, a short provenance line, the bullets, and the TL;DR.
// Layout is intentionally simple.
func writeSummaryPDF(rec cache.Record, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate UTF-8 model output before writing.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = rec.URL
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(title), "", "L", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.WriteLinkString(5, rec.URL, rec.URL)
	pdf.Ln(7)
	meta := fmt.Sprintf("Fetched via %s in %.2fs, summarized with %s", rec.FetchMode, rec.ElapsedSec, rec.Model)
	pdf.MultiCell(0, 5, tr(meta), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 11)
	for _, b := range rec.Bullets {
		pdf.MultiCell(0, 5, tr("- "+b), "", "L", false)
		pdf.Ln(1)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Write(5, "TL;DR: ")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Write(5, tr(rec.TLDR))
	pdf.Ln(6)

	return pdf.OutputFileAndClose(outPath)
}
