package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// TicketReader loads a persisted ticket.
type TicketReader interface {
	GetByID(id int64) (models.Ticket, error)
}

// DocsService renders e-ticket and payment-slip PDFs for a user's tickets.
type DocsService struct {
	Tickets   TicketReader
	RequestID string
}

func (s DocsService) GenerateETicket(userID, ticketID int64) ([]byte, string, error) {
	t, err := s.load(userID, ticketID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_eticket", fmt.Sprintf("ticket_id=%d", ticketID))
	return buildETicketPDF(t)
}

func (s DocsService) GeneratePaymentSlip(userID, ticketID int64) ([]byte, string, error) {
	t, err := s.load(userID, ticketID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_payment_slip", fmt.Sprintf("ticket_id=%d", ticketID))
	return buildPaymentSlipPDF(t)
}

func (s DocsService) load(userID, ticketID int64) (models.Ticket, error) {
	t, err := s.Tickets.GetByID(ticketID)
	if err != nil {
		if isMissing(err) {
			return t, domain.NotFoundError{Resource: "ticket", Err: err}
		}
		return t, err
	}
	if t.UserID != userID {
		return models.Ticket{}, domain.ForbiddenError{Resource: "ticket"}
	}
	return t, nil
}

func buildETicketPDF(t models.Ticket) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "HIGH SPEED RAIL E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Reservation  : %s", safe(t.ReservationCode, "-")),
		fmt.Sprintf("Train        : %s", safe(pdfText(t.ServiceCode), "-")),
		fmt.Sprintf("Route        : %s -> %s", safe(pdfText(models.StationName(t.Origin)), "-"), safe(pdfText(models.StationName(t.Destination)), "-")),
		fmt.Sprintf("Date         : %s", safe(pdfText(t.TravelDate), "-")),
		fmt.Sprintf("Time         : %s -> %s", safe(pdfText(t.Departure), "-"), safe(pdfText(t.Arrival), "-")),
		fmt.Sprintf("Seats        : %s", safe(seatLabels(t.Seats), "-")),
		fmt.Sprintf("Fare         : %s", fareLabel(t.Price)),
		fmt.Sprintf("Payment      : %s", paymentLabel(t)),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Pick up the paper ticket or pay at the station before the payment deadline, otherwise the reservation is released.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(t.ReservationCode), safeFilenamePart(pdfText(t.TravelDate)))
	return buf.Bytes(), filename, nil
}

func buildPaymentSlipPDF(t models.Ticket) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Slip", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT SLIP")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Reservation : "+safe(t.ReservationCode, "-"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Booked at   : "+t.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	desc := fmt.Sprintf("Train %s %s -> %s (%s %s) seats %s",
		safe(pdfText(t.ServiceCode), "-"),
		safe(pdfText(models.StationName(t.Origin)), "-"), safe(pdfText(models.StationName(t.Destination)), "-"),
		safe(pdfText(t.TravelDate), "-"), safe(pdfText(t.Departure), "-"),
		safe(seatLabels(t.Seats), "-"),
	)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, "1) "+desc, "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total  : "+fareLabel(t.Price))
	pdf.Ln(8)
	pdf.Cell(0, 8, "Status : "+paymentLabel(t))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("PAYMENT_%s.pdf", safeFilenamePart(t.ReservationCode))
	return buf.Bytes(), filename, nil
}

var (
	seatPattern     = regexp.MustCompile(`^(\d+)\s*車\s*(\w+)$`)
	deadlinePattern = regexp.MustCompile(`付款期限\s*([0-9/]+)`)
)

// seatLabels turns portal seats like "5車17E" into "Car 5 Seat 17E".
func seatLabels(seats []string) string {
	out := []string{}
	for _, s := range seats {
		s = strings.TrimSpace(s)
		if s == "" || s == models.Unknown {
			continue
		}
		if m := seatPattern.FindStringSubmatch(s); m != nil {
			out = append(out, "Car "+m[1]+" Seat "+m[2])
			continue
		}
		out = append(out, pdfText(s))
	}
	return strings.Join(out, ", ")
}

func fareLabel(price string) string {
	if cur, n, ok := utils.ParseFare(price); ok {
		return utils.FormatFare(cur, n)
	}
	return "-"
}

func paymentLabel(t models.Ticket) string {
	if t.IsPaid {
		return "Paid"
	}
	label := "Unpaid"
	if m := deadlinePattern.FindStringSubmatch(t.PaymentStatus); m != nil {
		label += ", pay by " + m[1]
	}
	return label
}

// pdfText keeps what core fonts can draw; unknown fields become empty.
func pdfText(s string) string {
	if strings.TrimSpace(s) == models.Unknown {
		return ""
	}
	return utils.ASCIIOnly(s)
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
