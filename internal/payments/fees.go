package payments

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jiy4/Brief-Case/pkg/format"
)

// DefaultServiceFeePercent is the platform cut applied on top of the
// lawyer's consultation fee, overridable via SERVICE_FEE_PERCENT.
const DefaultServiceFeePercent = 0.15

// FeeBreakdown itemizes a checkout total. All amounts are cents.
type FeeBreakdown struct {
	ConsultationFee int `json:"consultation_fee"`
	ServiceFee      int `json:"service_fee"`
	Total           int `json:"total"`
}

// CalculateTotalFee derives the service fee (rounded to the nearest cent)
// and total from a consultation fee.
func CalculateTotalFee(consultationFee int, pct float64) FeeBreakdown {
	serviceFee := int(math.Round(float64(consultationFee) * pct))
	return FeeBreakdown{
		ConsultationFee: consultationFee,
		ServiceFee:      serviceFee,
		Total:           consultationFee + serviceFee,
	}
}

// ServiceFeePercent reads the configured platform percentage, falling back
// to the default on absence or garbage.
func ServiceFeePercent() float64 {
	v := strings.TrimSpace(os.Getenv("SERVICE_FEE_PERCENT"))
	if v == "" {
		return DefaultServiceFeePercent
	}
	pct, err := strconv.ParseFloat(v, 64)
	if err != nil || pct < 0 || pct > 1 {
		return DefaultServiceFeePercent
	}
	return pct
}

// Receipt is the printable record of a completed (simulated) charge.
type Receipt struct {
	TransactionID string       `json:"transaction_id"`
	AppointmentID string       `json:"appointment_id"`
	LawyerName    string       `json:"lawyer_name"`
	Date          string       `json:"date"` // YYYY-MM-DD
	Time          string       `json:"time"` // HH:MM
	Breakdown     FeeBreakdown `json:"breakdown"`
	PaidAt        string       `json:"paid_at"`
}

// Export renders the receipt as plain text for download.
func (r Receipt) Export() string {
	var b strings.Builder
	b.WriteString("BRIEF-CASE RECEIPT\n")
	b.WriteString(strings.Repeat("=", 34) + "\n")
	fmt.Fprintf(&b, "Transaction:  %s\n", r.TransactionID)
	fmt.Fprintf(&b, "Lawyer:       %s\n", r.LawyerName)
	fmt.Fprintf(&b, "Scheduled:    %s at %s\n", format.Date(r.Date), format.Time(r.Time))
	b.WriteString(strings.Repeat("-", 34) + "\n")
	fmt.Fprintf(&b, "Consultation: %s\n", format.Currency(r.Breakdown.ConsultationFee))
	fmt.Fprintf(&b, "Service fee:  %s\n", format.Currency(r.Breakdown.ServiceFee))
	fmt.Fprintf(&b, "Total:        %s\n", format.Currency(r.Breakdown.Total))
	b.WriteString(strings.Repeat("=", 34) + "\n")
	fmt.Fprintf(&b, "Paid at %s\n", r.PaidAt)
	return b.String()
}
