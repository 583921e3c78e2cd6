package confirmation

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Details is everything printed on a booking confirmation document.
type Details struct {
	ClinicName     string
	CallerName     string
	CallerNumber   string
	Doctor         string
	Start          time.Time
	End            time.Time
	ConfirmationID string
}

// GeneratePDF renders a single-page confirmation document the caller
// receives by email after a successful booking.
func GeneratePDF(details Details) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Appointment Confirmation", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, details.ClinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Appointment Confirmation", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Confirmation ID", details.ConfirmationID},
		{"Patient", patientLine(details)},
		{"Date", details.Start.Format("Monday, January 2, 2006")},
		{"Time", timeLine(details)},
	}
	if details.Doctor != "" {
		rows = append(rows, [2]string{"Doctor", details.Doctor})
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Please arrive ten minutes early. To cancel or reschedule, "+
		"call the clinic and have your confirmation ID ready.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render confirmation PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func patientLine(details Details) string {
	if details.CallerName == "" {
		return details.CallerNumber
	}
	if details.CallerNumber == "" {
		return details.CallerName
	}
	return fmt.Sprintf("%s (%s)", details.CallerName, details.CallerNumber)
}

func timeLine(details Details) string {
	if details.End.IsZero() {
		return details.Start.Format("3:04 PM")
	}
	return fmt.Sprintf("%s to %s", details.Start.Format("3:04 PM"), details.End.Format("3:04 PM"))
}
