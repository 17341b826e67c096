package api

const (
	// PrmAudio is name of form audio file parameter
	PrmAudio = "audio"
	// PrmInvoice is name of form invoice file parameter
	PrmInvoice = "invoice"
	// PrmRating is name of form rating parameter
	PrmRating = "rating"
	// PrmName is name of form customer name parameter
	PrmName = "name"
	// PrmMobile is name of form customer mobile parameter
	PrmMobile = "mobile"
	// PrmLanguage is name of form spoken language parameter
	PrmLanguage = "language"
	// PrmText is name of form written feedback parameter
	PrmText = "text"
	// PrmCompany is name of form company ID parameter
	PrmCompany = "company"
	// PrmBranch is name of form branch ID parameter
	PrmBranch = "branch"
	// PrmClient is name of form client ID parameter
	PrmClient = "client"
	// PrmInvoiceURL is name of form stored invoice reference parameter
	PrmInvoiceURL = "invoiceUrl"
	// PrmJobCardNumber is name of form pre-extracted job card number parameter
	PrmJobCardNumber = "jobCardNumber"
	// PrmInvoiceNumber is name of form pre-extracted invoice number parameter
	PrmInvoiceNumber = "invoiceNumber"
	// PrmInvoiceDate is name of form pre-extracted invoice date parameter
	PrmInvoiceDate = "invoiceDate"
	// PrmVIN is name of form pre-extracted VIN parameter
	PrmVIN = "vin"
	// PrmRecipientName is name of form pre-extracted recipient name parameter
	PrmRecipientName = "recipientName"
	// PrmRecipientMobile is name of form pre-extracted recipient mobile parameter
	PrmRecipientMobile = "recipientMobile"
	// PrmFile is name of form file parameter for the external transcriber
	PrmFile = "file"
)

// InvoiceFields is extracted invoice data returned to the caller
type InvoiceFields struct {
	JobCardNumber   string `json:"jobCardNumber,omitempty"`
	InvoiceNumber   string `json:"invoiceNumber,omitempty"`
	InvoiceDate     string `json:"invoiceDate,omitempty"`
	VIN             string `json:"vin,omitempty"`
	RecipientName   string `json:"recipientName,omitempty"`
	RecipientMobile string `json:"recipientMobile,omitempty"`
}

// InvoiceResult is the response of the invoice extraction method
type InvoiceResult struct {
	Fields  InvoiceFields `json:"fields"`
	FileURL string        `json:"fileUrl"`
}

// ReviewResult is the response of the review submission method
type ReviewResult struct {
	ID        string        `json:"id"`
	AudioURL  string        `json:"audioUrl,omitempty"`
	Fields    InvoiceFields `json:"fields"`
	FinalText string        `json:"finalText,omitempty"`
}

// ReviewData is one review record returned by the listing method
type ReviewData struct {
	ID             string        `json:"id"`
	CompanyID      string        `json:"companyId"`
	BranchID       string        `json:"branchId,omitempty"`
	ClientID       string        `json:"clientId"`
	CustomerName   string        `json:"customerName"`
	CustomerMobile string        `json:"customerMobile,omitempty"`
	Rating         int           `json:"rating"`
	Classification string        `json:"classification"`
	AudioURL       string        `json:"audioUrl,omitempty"`
	FinalText      string        `json:"finalText,omitempty"`
	WrittenText    string        `json:"writtenText,omitempty"`
	Fields         InvoiceFields `json:"fields"`
	InvoiceURL     string        `json:"invoiceUrl,omitempty"`
	Created        string        `json:"created"`
}
