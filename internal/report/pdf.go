package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls the rendered summary. A zero QRSize disables the
// digest QR code.
type PDFOptions struct {
	Title  string
	QRSize int
}

// SaveSummaryPDF renders a scan summary into a PDF document.
func SaveSummaryPDF(sum *Summary, opts PDFOptions, out string) error {
	title := emptyFallback(opts.Title, "KMALL Scan Summary")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAuthor("kmallctl", false)
	pdf.SetCreator("kmallctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, title)
	if err := addDigestQR(pdf, sum.Sha256, opts.QRSize); err != nil {
		return err
	}
	addSummarySection(pdf, sum)
	addTagSection(pdf, sum.Tags)
	addAnomalySection(pdf, sum.Anomalies)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

// addDigestQR places the file digest QR code in the top right corner.
func addDigestQR(pdf *gofpdf.Fpdf, hash string, size int) error {
	if size <= 0 || sanitizeHash(hash) == "" {
		return nil
	}
	png, err := HashToQR(hash, size)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("sha256", opts, bytes.NewReader(png))
	w, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	const side = 30.0
	pdf.ImageOptions("sha256", w-right-side, 12, side, side, false, opts, 0, "")
	return nil
}

func addSummarySection(pdf *gofpdf.Fpdf, sum *Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Source", value: emptyFallback(sum.Source, "-")},
		{label: "Size", value: fmt.Sprintf("%d bytes", sum.Size)},
		{label: "SHA-256", value: emptyFallback(sum.Sha256, "-")},
		{label: "Datagrams", value: strconv.FormatInt(sum.Datagrams, 10)},
		{label: "Sentinels", value: strconv.FormatInt(sum.Sentinels, 10)},
		{label: "Failed", value: strconv.FormatInt(sum.Failed, 10)},
		{label: "First", value: timeLabel(sum.First)},
		{label: "Last", value: timeLabel(sum.Last)},
		{label: "Geo Anomalies", value: strconv.Itoa(len(sum.Anomalies))},
		{label: "Result", value: resultLabel(sum.Error)},
	}
	for _, item := range items {
		pdf.CellFormat(40, 6, item.label, "", 0, "L", false, 0, "")
		pdf.MultiCell(100, 6, item.value, "", "L", false)
	}
	pdf.Ln(4)
}

func addTagSection(pdf *gofpdf.Fpdf, rows []TagCount) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Datagrams by Type")
	pdf.Ln(9)

	headers := []string{"Type", "Count", "Bytes"}
	widths := []float64{40, 40, 60}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		values := []string{
			row.Tag,
			strconv.FormatInt(row.Count, 10),
			strconv.FormatInt(row.Bytes, 10),
		}
		renderTableRow(pdf, widths, values, 5)
	}
	pdf.Ln(4)
}

func addAnomalySection(pdf *gofpdf.Fpdf, anomalies []Anomaly) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Geo Anomalies")
	pdf.Ln(9)

	if len(anomalies) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No anomalies recorded.", "", "L", false)
		return
	}

	headers := []string{"Offset", "Type", "Field", "Value", "Raw"}
	widths := []float64{28, 20, 42, 36, 54}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, a := range anomalies {
		values := []string{
			strconv.FormatInt(a.Offset, 10),
			a.Tag,
			a.Field,
			strconv.FormatFloat(a.Value, 'g', -1, 64),
			a.Raw,
		}
		renderTableRow(pdf, widths, values, 5)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := emptyFallback(strings.TrimSpace(val), "-")
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func resultLabel(err string) string {
	if err == "" {
		return "OK"
	}
	return "FAILED: " + err
}

func timeLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339Nano)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
