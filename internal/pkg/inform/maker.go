package inform

import (
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// Maker builds notification emails for reviews needing staff attention
type Maker struct {
	from     string
	to       []string
	location *time.Location
}

// NewMaker inits the email maker from config
func NewMaker(c *viper.Viper) (*Maker, error) {
	res := &Maker{}
	res.from = c.GetString("email.from")
	if res.from == "" {
		return nil, fmt.Errorf("no email.from")
	}
	res.to = c.GetStringSlice("email.to")
	if len(res.to) == 0 {
		return nil, fmt.Errorf("no email.to")
	}
	location := c.GetString("email.location")
	if location != "" {
		var err error
		res.location, err = time.LoadLocation(location)
		if err != nil {
			return nil, fmt.Errorf("can't init location: %w", err)
		}
	}
	goapp.Log.Info().Str("from", res.from).Int("to", len(res.to)).Msg("email maker")
	return res, nil
}

// Make prepares one notification email
func (m *Maker) Make(r *persistence.Review) (*email.Email, error) {
	if r == nil {
		return nil, fmt.Errorf("no review")
	}
	res := email.NewEmail()
	res.From = m.from
	res.To = m.to
	res.Subject = fmt.Sprintf("Review alert: %s rated %d/10", r.CustomerName, r.Rating)
	res.Text = []byte(m.body(r))
	return res, nil
}

func (m *Maker) body(r *persistence.Review) string {
	sb := &strings.Builder{}
	add := func(name, value string) {
		if value != "" {
			fmt.Fprintf(sb, "%s: %s\n", name, value)
		}
	}
	add("Customer", r.CustomerName)
	add("Mobile", r.CustomerMobile.String)
	add("Rating", fmt.Sprintf("%d (%s)", r.Rating, r.Classification))
	add("Company", r.CompanyID)
	add("Branch", r.BranchID.String)
	add("Received", m.localTime(r.Created).Format("2006-01-02 15:04"))
	sb.WriteString("\n")
	add("Feedback", feedback(r))
	add("Audio", r.AudioURL.String)
	sb.WriteString("\n")
	add("Job card", r.Invoice.JobCardNumber.String)
	add("Invoice no", r.Invoice.InvoiceNumber.String)
	add("Invoice date", r.Invoice.InvoiceDate.String)
	add("VIN", r.Invoice.VIN.String)
	add("Invoice scan", r.Invoice.FileURL.String)
	return sb.String()
}

func feedback(r *persistence.Review) string {
	if r.FinalText.Valid {
		return r.FinalText.String
	}
	return r.WrittenText.String
}

func (m *Maker) localTime(t time.Time) time.Time {
	if m.location != nil {
		return t.In(m.location)
	}
	return t
}
