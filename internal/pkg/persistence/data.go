package persistence

import (
	"database/sql"
	"time"
)

type (

	// InvoiceData keeps fields extracted from an invoice scan.
	// Every field is optional - extraction never fails, it only yields
	// fewer populated values
	InvoiceData struct {
		JobCardNumber   sql.NullString
		InvoiceNumber   sql.NullString
		InvoiceDate     sql.NullString
		VIN             sql.NullString
		RecipientName   sql.NullString
		RecipientMobile sql.NullString
		FileURL         sql.NullString
	}

	// TranscriptionResult keeps the outcome of the transcription/translation stages.
	// Final is always a printable string when audio was present, possibly a
	// diagnostic placeholder
	TranscriptionResult struct {
		Original string
		Final    string
		Degraded bool
	}

	// Review table
	Review struct {
		ID             string
		CompanyID      string
		BranchID       sql.NullString
		ClientID       string
		CustomerName   string
		CustomerMobile sql.NullString
		Rating         int
		Classification string
		AudioURL       sql.NullString
		Transcript     sql.NullString
		FinalText      sql.NullString
		Degraded       bool
		WrittenText    sql.NullString
		Invoice        InvoiceData
		Created        time.Time
	}

	// ListFilter restricts review listing
	ListFilter struct {
		CompanyID string
		BranchID  string
		ClientID  string
		From      time.Time
		To        time.Time
	}
)
