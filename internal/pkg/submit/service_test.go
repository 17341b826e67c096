package submit

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/airenas/revu/internal/pkg/api"
	"github.com/airenas/revu/internal/pkg/messages"
	"github.com/airenas/revu/internal/pkg/persistence"
	tapi "github.com/airenas/revu/internal/pkg/transcriber/api"
	"github.com/airenas/revu/internal/pkg/test"
	"github.com/airenas/revu/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	filerMock    *mocks.Filer
	dbMock       *mocks.DB
	senderMock   *mocks.Sender
	ocrMock      *mocks.Recognizer
	pipelineMock *mockPipeline
	tData        *Data
	tEcho        *echo.Echo
)

func initTest(t *testing.T) {
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	senderMock = &mocks.Sender{}
	ocrMock = &mocks.Recognizer{}
	pipelineMock = &mockPipeline{}
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything).Return("http://files/f", nil)
	dbMock.On("InsertReview", mock.Anything, mock.Anything).Return(nil)
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ocrMock.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).
		Return("Invoice No : INV2025001", nil)
	pipelineMock.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&persistence.TranscriptionResult{Original: "labas", Final: "hello"})
	tData = &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock, OCR: ocrMock,
		Pipeline: pipelineMock, DefaultLang: "en"}
	tEcho = initRoutes(tData)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/review", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_Invoice(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/invoice", nil,
		[]testFile{{prm: api.PrmInvoice, name: "inv.pdf", mime: "application/pdf", data: "pdf data"}})
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, resp.Body.String(), `"invoiceNumber":"INV2025001"`)
	assert.Contains(t, resp.Body.String(), `"fileUrl":"http://files/f"`)
}

func Test_Invoice_NoFile(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/invoice", nil, nil)
	test.Code(t, tEcho, req, http.StatusBadRequest)
}

func Test_Invoice_WrongType(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/invoice", nil,
		[]testFile{{prm: api.PrmInvoice, name: "inv.txt", mime: "text/plain", data: "olia"}})
	test.Code(t, tEcho, req, http.StatusBadRequest)
}

func Test_Invoice_Fails_Saver(t *testing.T) {
	initTest(t)
	filerMock.ExpectedCalls = nil
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything).Return("", errors.New("no disk"))
	req := newRequest(t, "/invoice", nil,
		[]testFile{{prm: api.PrmInvoice, name: "inv.pdf", mime: "application/pdf", data: "pdf data"}})
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_Invoice_OCRFails_Degrades(t *testing.T) {
	initTest(t)
	ocrMock.ExpectedCalls = nil
	ocrMock.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("ocr down"))
	req := newRequest(t, "/invoice", nil,
		[]testFile{{prm: api.PrmInvoice, name: "inv.pdf", mime: "application/pdf", data: "pdf data"}})
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, resp.Body.String(), `"fileUrl":"http://files/f"`)
	assert.NotContains(t, resp.Body.String(), `invoiceNumber`)
}

func Test_Review_WrittenOnly(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review", reviewParams(map[string]string{api.PrmRating: "10"}), nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, resp.Body.String(), `"finalText":"Excellent service!"`)
	assert.Contains(t, resp.Body.String(), `"id":"`)
	senderMock.AssertNumberOfCalls(t, "SendMessage", 0)
	pipelineMock.AssertNumberOfCalls(t, "Run", 0)
}

func Test_Review_Negative_Notifies(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "4", api.PrmText: "bad service"}), nil)
	test.Code(t, tEcho, req, http.StatusOK)
	require.Equal(t, 1, len(senderMock.Calls))
	assert.Equal(t, messages.Notify, senderMock.Calls[0].Arguments[2])
	msg, ok := senderMock.Calls[0].Arguments[1].(*messages.NotifyMessage)
	require.True(t, ok)
	assert.NotEmpty(t, msg.ID)
}

func Test_Review_NotifyFails_StillOK(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("queue down"))
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "2"}), nil)
	test.Code(t, tEcho, req, http.StatusOK)
	dbMock.AssertNumberOfCalls(t, "InsertReview", 1)
}

func Test_Review_WithAudio(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "3", api.PrmLanguage: "lt"}),
		[]testFile{{prm: api.PrmAudio, name: "audio.wav", mime: "audio/wav", data: "RIFF"}})
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, resp.Body.String(), `"finalText":"hello"`)
	assert.Contains(t, resp.Body.String(), `"audioUrl":"http://files/f"`)
	require.Equal(t, 1, len(pipelineMock.Calls))
	assert.Equal(t, "lt", pipelineMock.Calls[0].Arguments[2])
	ud, ok := pipelineMock.Calls[0].Arguments[1].(*tapi.UploadData)
	require.True(t, ok)
	assert.Equal(t, "lt", ud.Params[api.PrmLanguage])
	assert.Equal(t, "pcm", ud.Params[tapi.PrmFormat])
	assert.Equal(t, "16000", ud.Params[tapi.PrmSampleRate])
	assert.Equal(t, "1", ud.Params[tapi.PrmChannels])
}

func Test_Review_Invalid_NoExternalCalls(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "11"}),
		[]testFile{{prm: api.PrmAudio, name: "audio.wav", mime: "audio/wav", data: "RIFF"},
			{prm: api.PrmInvoice, name: "inv.pdf", mime: "application/pdf", data: "pdf"}})
	test.Code(t, tEcho, req, http.StatusBadRequest)
	assert.Equal(t, 0, len(filerMock.Calls))
	assert.Equal(t, 0, len(pipelineMock.Calls))
	assert.Equal(t, 0, len(ocrMock.Calls))
	assert.Equal(t, 0, len(dbMock.Calls))
}

func Test_Review_Invalid_NoName_NoExternalCalls(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmName: ""}),
		[]testFile{{prm: api.PrmInvoice, name: "inv.pdf", mime: "application/pdf", data: "pdf"}})
	test.Code(t, tEcho, req, http.StatusBadRequest)
	assert.Equal(t, 0, len(filerMock.Calls))
	assert.Equal(t, 0, len(ocrMock.Calls))
}

func Test_Review_WrongAudioExt(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "3"}),
		[]testFile{{prm: api.PrmAudio, name: "audio.txt", mime: "text/plain", data: "olia"}})
	test.Code(t, tEcho, req, http.StatusBadRequest)
}

func Test_Review_400(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{name: "no rating", params: reviewParams(map[string]string{api.PrmRating: ""})},
		{name: "rating high", params: reviewParams(map[string]string{api.PrmRating: "11"})},
		{name: "rating low", params: reviewParams(map[string]string{api.PrmRating: "0"})},
		{name: "no name", params: reviewParams(map[string]string{api.PrmName: " "})},
		{name: "no company", params: reviewParams(map[string]string{api.PrmCompany: ""})},
		{name: "no client", params: reviewParams(map[string]string{api.PrmClient: ""})},
		{name: "unknown param", params: reviewParams(map[string]string{"olia": "olia"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			req := newRequest(t, "/review", tt.params, nil)
			test.Code(t, tEcho, req, http.StatusBadRequest)
		})
	}
}

func Test_Review_Fails_DB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("InsertReview", mock.Anything, mock.Anything).Return(errors.New("db down"))
	req := newRequest(t, "/review", reviewParams(map[string]string{api.PrmRating: "8"}), nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_Review_InvoiceURL(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "8", api.PrmInvoiceURL: "http://files/i.pdf"}), nil)
	test.Code(t, tEcho, req, http.StatusOK)
	require.Equal(t, 1, len(dbMock.Calls))
	rev, ok := dbMock.Calls[0].Arguments[1].(*persistence.Review)
	require.True(t, ok)
	assert.Equal(t, "http://files/i.pdf", rev.Invoice.FileURL.String)
	assert.Equal(t, "John", rev.Invoice.RecipientName.String)
}

func Test_Review_PreExtractedFields(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "8",
			api.PrmInvoiceURL:    "http://files/i.pdf",
			api.PrmJobCardNumber: "JC001", api.PrmInvoiceNumber: "INV2025001",
			api.PrmInvoiceDate: "02/04/2025", api.PrmVIN: "1HGBH41JXMN109186"}), nil)
	test.Code(t, tEcho, req, http.StatusOK)
	require.Equal(t, 1, len(dbMock.Calls))
	rev, ok := dbMock.Calls[0].Arguments[1].(*persistence.Review)
	require.True(t, ok)
	assert.Equal(t, "http://files/i.pdf", rev.Invoice.FileURL.String)
	assert.Equal(t, "JC001", rev.Invoice.JobCardNumber.String)
	assert.Equal(t, "INV2025001", rev.Invoice.InvoiceNumber.String)
	assert.Equal(t, "02/04/2025", rev.Invoice.InvoiceDate.String)
	assert.Equal(t, "1HGBH41JXMN109186", rev.Invoice.VIN.String)
	assert.Equal(t, 0, len(ocrMock.Calls))
}

func Test_Review_PreExtractedFields_NoURL(t *testing.T) {
	initTest(t)
	req := newRequest(t, "/review",
		reviewParams(map[string]string{api.PrmRating: "8",
			api.PrmInvoiceNumber: "INV2025001"}), nil)
	test.Code(t, tEcho, req, http.StatusOK)
	require.Equal(t, 1, len(dbMock.Calls))
	rev, ok := dbMock.Calls[0].Arguments[1].(*persistence.Review)
	require.True(t, ok)
	assert.Equal(t, "INV2025001", rev.Invoice.InvoiceNumber.String)
	assert.False(t, rev.Invoice.FileURL.Valid)
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		data    *Data
		wantErr bool
	}{
		{name: "OK", data: &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock,
			OCR: ocrMock, Pipeline: pipelineMock, DefaultLang: "en"}, wantErr: false},
		{name: "Fail Saver", data: &Data{DB: dbMock, MsgSender: senderMock,
			OCR: ocrMock, Pipeline: pipelineMock, DefaultLang: "en"}, wantErr: true},
		{name: "Fail DB", data: &Data{Saver: filerMock, MsgSender: senderMock,
			OCR: ocrMock, Pipeline: pipelineMock, DefaultLang: "en"}, wantErr: true},
		{name: "Fail Sender", data: &Data{Saver: filerMock, DB: dbMock,
			OCR: ocrMock, Pipeline: pipelineMock, DefaultLang: "en"}, wantErr: true},
		{name: "Fail OCR", data: &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock,
			Pipeline: pipelineMock, DefaultLang: "en"}, wantErr: true},
		{name: "Fail Pipeline", data: &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock,
			OCR: ocrMock, DefaultLang: "en"}, wantErr: true},
		{name: "Fail Lang", data: &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock,
			OCR: ocrMock, Pipeline: pipelineMock}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockPipeline struct{ mock.Mock }

func (m *mockPipeline) Run(ctx context.Context, audio *tapi.UploadData, lang string) *persistence.TranscriptionResult {
	args := m.Called(ctx, audio, lang)
	return args.Get(0).(*persistence.TranscriptionResult)
}

type testFile struct {
	prm, name, mime, data string
}

func reviewParams(over map[string]string) map[string]string {
	res := map[string]string{api.PrmRating: "8", api.PrmName: "John",
		api.PrmCompany: "c1", api.PrmClient: "cl1"}
	for k, v := range over {
		if v == "" {
			delete(res, k)
		} else {
			res[k] = v
		}
	}
	return res
}

func newRequest(t *testing.T, url string, params map[string]string, files []testFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range params {
		require.Nil(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition",
			`form-data; name="`+f.prm+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mime)
		part, err := writer.CreatePart(h)
		require.Nil(t, err)
		_, err = part.Write([]byte(f.data))
		require.Nil(t, err)
	}
	require.Nil(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}
