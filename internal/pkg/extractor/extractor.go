package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/airenas/revu/internal/pkg/utils"
)

// rule locates one invoice field in OCR text.
// Rules are independent: a miss leaves the field unset and never
// blocks the other rules
type rule struct {
	name string
	re   *regexp.Regexp
	set  func(*persistence.InvoiceData, string)
}

// Patterns are tolerant to OCR noise: a label and its value may be
// separated by unrelated text or line breaks, so every rule searches
// forward from its label with a non-greedy gap
var rules = []rule{
	{name: "jobCardNumber",
		re:  regexp.MustCompile(`(?si)Job\s*Card\s*Number.*?\b(JC[A-Z0-9]+)\b`),
		set: func(d *persistence.InvoiceData, v string) { d.JobCardNumber = utils.ToSQLStr(v) }},
	{name: "invoiceNumber",
		re:  regexp.MustCompile(`(?si)Invoice\s*No.*?\b(INV[A-Z0-9]+)\b`),
		set: func(d *persistence.InvoiceData, v string) { d.InvoiceNumber = utils.ToSQLStr(v) }},
	{name: "invoiceDate", // strictly DD/MM/YYYY, trailing time dropped
		re:  regexp.MustCompile(`(?si)Invoice\s*Date.*?(\d{2}/\d{2}/\d{4})`),
		set: func(d *persistence.InvoiceData, v string) { d.InvoiceDate = utils.ToSQLStr(v) }},
	{name: "vin",
		re:  regexp.MustCompile(`(?si)VIN.*?\b([A-Z0-9]{17})\b`),
		set: func(d *persistence.InvoiceData, v string) { d.VIN = utils.ToSQLStr(v) }},
	{name: "recipientName",
		re:  regexp.MustCompile(`(?i)Name\s*of\s*Recipient\s*:?\s*([^\r\n]+)`),
		set: func(d *persistence.InvoiceData, v string) { d.RecipientName = utils.ToSQLStr(strings.TrimSpace(v)) }},
	{name: "recipientMobile",
		re:  regexp.MustCompile(`(?si)Mobile.*?\b(\d{10})\b`),
		set: func(d *persistence.InvoiceData, v string) { d.RecipientMobile = utils.ToSQLStr(v) }},
}

// Extract runs all field rules over OCR text.
// It never fails - unmatched fields stay unset
func Extract(text string) *persistence.InvoiceData {
	res := &persistence.InvoiceData{}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if len(m) > 1 && m[1] != "" {
			r.set(res, m[1])
		}
	}
	return res
}

// ValidateType checks if the invoice media type is supported.
// Unsupported type is the only hard failure of this component
func ValidateType(mime string) error {
	if !utils.SupportInvoiceType(mime) {
		return fmt.Errorf("unsupported file type '%s'", mime)
	}
	return nil
}
