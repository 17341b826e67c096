package review

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/airenas/revu/internal/pkg/utils"
	"github.com/google/uuid"
)

const (
	dateLayout = "02/01/2006"
	// defaultPositiveText is the synthesized written feedback for a top
	// rating with no audio and no text
	defaultPositiveText = "Excellent service!"
)

// Input keeps data required to assemble one review
type Input struct {
	CompanyID      string
	BranchID       string
	ClientID       string
	CustomerName   string
	CustomerMobile string
	Rating         int
	WrittenText    string
	AudioURL       string
	Transcription  *persistence.TranscriptionResult
	Invoice        *persistence.InvoiceData
}

// ValidateInput checks rating bounds and required identity fields.
// It lets a caller reject a submission before storing any file or
// invoking an external service
func ValidateInput(in *Input) error {
	if in.Rating < 1 || in.Rating > 10 {
		return fmt.Errorf("wrong rating %d, must be in [1, 10]", in.Rating)
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("no customer name")
	}
	if in.CompanyID == "" {
		return fmt.Errorf("no company ID")
	}
	if in.ClientID == "" {
		return fmt.Errorf("no client ID")
	}
	return nil
}

// Assemble validates input and builds one review record.
// No external effects - persisting is the caller's job
func Assemble(in *Input, now time.Time) (*persistence.Review, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	res := &persistence.Review{}
	res.ID = uuid.New().String()
	res.CompanyID = in.CompanyID
	res.BranchID = utils.ToSQLStr(in.BranchID)
	res.ClientID = in.ClientID
	res.CustomerName = strings.TrimSpace(in.CustomerName)
	res.CustomerMobile = utils.ToSQLStr(strings.TrimSpace(in.CustomerMobile))
	res.Rating = in.Rating
	res.Classification = Classify(in.Rating).String()
	res.Created = now

	if in.Transcription != nil {
		res.AudioURL = utils.ToSQLStr(in.AudioURL)
		res.Transcript = utils.ToSQLStr(in.Transcription.Original)
		res.FinalText = utils.ToSQLStr(in.Transcription.Final)
		res.Degraded = in.Transcription.Degraded
	} else {
		res.WrittenText = writtenFallback(in.WrittenText, in.Rating)
	}

	if in.Invoice != nil {
		res.Invoice = *in.Invoice
		res.Invoice.InvoiceDate = normalizeDate(in.Invoice.InvoiceDate)
		// confirmed customer identity always wins over extracted data
		res.Invoice.RecipientName = utils.ToSQLStr(res.CustomerName)
		res.Invoice.RecipientMobile = res.CustomerMobile
	}
	return res, nil
}

// NotifyEligible decides if the review needs staff attention
func NotifyEligible(r *persistence.Review) bool {
	return r.Classification == Negative.String()
}

func writtenFallback(text string, rating int) sql.NullString {
	text = strings.TrimSpace(text)
	if text != "" {
		return utils.ToSQLStr(text)
	}
	if rating >= 9 {
		return utils.ToSQLStr(defaultPositiveText)
	}
	return sql.NullString{}
}

// normalizeDate accepts DD/MM/YYYY verbatim, tries general parsing
// otherwise. An unparseable date is stored unset, never malformed
func normalizeDate(d sql.NullString) sql.NullString {
	if !d.Valid {
		return d
	}
	s := strings.TrimSpace(d.String)
	if _, err := time.Parse(dateLayout, s); err == nil {
		return utils.ToSQLStr(s)
	}
	for _, layout := range []string{"2006-01-02", "02-01-2006", "2 January 2006", "Jan 2, 2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return utils.ToSQLStr(t.Format(dateLayout))
		}
	}
	return sql.NullString{}
}
