package submit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/revu/internal/pkg/api"
	"github.com/airenas/revu/internal/pkg/audio"
	"github.com/airenas/revu/internal/pkg/extractor"
	"github.com/airenas/revu/internal/pkg/messages"
	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/airenas/revu/internal/pkg/review"
	tapi "github.com/airenas/revu/internal/pkg/transcriber/api"
	"github.com/airenas/revu/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver stores files and returns their URL
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Recognizer extracts text from invoice scans
type Recognizer interface {
	ExtractText(ctx context.Context, content []byte, mime string) (string, error)
}

// Pipeline runs the transcription/translation sequence
type Pipeline interface {
	Run(ctx context.Context, audio *tapi.UploadData, lang string) *persistence.TranscriptionResult
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB saves reviews
type DB interface {
	InsertReview(ctx context.Context, r *persistence.Review) error
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Saver       FileSaver
	DB          DB
	MsgSender   MsgSender
	OCR         Recognizer
	Pipeline    Pipeline
	DefaultLang string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP REVU submit service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 300 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.OCR == nil {
		return fmt.Errorf("no OCR client")
	}
	if data.Pipeline == nil {
		return fmt.Errorf("no pipeline")
	}
	if data.DefaultLang == "" {
		return fmt.Errorf("no default language")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("revu_submit", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/invoice", invoice(data))
	e.POST("/review", submit(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func invoice(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("invoice method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)

		file, handler, err := takeFile(form, api.PrmInvoice)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no invoice file")
		}
		defer file.Close()

		id := uuid.New().String()
		fields, url, status, err := processInvoice(ctx, data, id, file, handler)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(status, errMsg(status, err))
		}

		return c.JSON(http.StatusOK, api.InvoiceResult{Fields: *fields, FileURL: url})
	}
}

// processInvoice stores the scan and extracts its fields.
// OCR failure degrades to empty fields, a storage failure aborts
func processInvoice(ctx context.Context, data *Data, id string, file multipart.File,
	handler *multipart.FileHeader) (*api.InvoiceFields, string, int, error) {
	mime := handler.Header.Get(echo.HeaderContentType)
	if err := extractor.ValidateType(mime); err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("can't read invoice file: %w", err)
	}
	fn, err := utils.MakeValidateFileName(id, handler.Filename)
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	url, err := data.Saver.SaveFile(ctx, fn, bytes.NewReader(content), int64(len(content)), mime)
	if err != nil {
		return nil, "", http.StatusInternalServerError, fmt.Errorf("can't save invoice: %w", err)
	}
	text, err := data.OCR.ExtractText(ctx, content, mime)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("id", id).Msg("OCR failed, returning empty fields")
		return &api.InvoiceFields{}, url, http.StatusOK, nil
	}
	return toAPIFields(extractor.Extract(text)), url, http.StatusOK, nil
}

func submit(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("review method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		if err := validateFormParams(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		rating, err := strconv.Atoi(c.FormValue(api.PrmRating))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong or missing rating")
		}
		input := &review.Input{
			CompanyID:      c.FormValue(api.PrmCompany),
			BranchID:       c.FormValue(api.PrmBranch),
			ClientID:       c.FormValue(api.PrmClient),
			CustomerName:   c.FormValue(api.PrmName),
			CustomerMobile: c.FormValue(api.PrmMobile),
			Rating:         rating,
			WrittenText:    c.FormValue(api.PrmText),
		}
		// reject before any file is stored or any external service is called
		if err := review.ValidateInput(input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		lang := c.FormValue(api.PrmLanguage)
		if lang == "" {
			lang = data.DefaultLang
		}

		id := uuid.New().String()
		goapp.Log.Info().Str("ID", id).Int("rating", rating).Msg("request info")

		var (
			wg         sync.WaitGroup
			audioURL   string
			audioErr   error
			trRes      *persistence.TranscriptionResult
			invData    *persistence.InvoiceData
			invErr     error
			invBadType bool
		)

		audioFile, audioHandler, err := takeFile(form, api.PrmAudio)
		if err == nil {
			defer audioFile.Close()
			if !utils.SupportAudioExt(strings.ToLower(filepath.Ext(audioHandler.Filename))) {
				return echo.NewHTTPError(http.StatusBadRequest, "unsupported audio file type")
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				audioURL, trRes, audioErr = processAudio(ctx, data, id, lang, audioFile, audioHandler)
			}()
		}

		invFile, invHandler, err := takeFile(form, api.PrmInvoice)
		if err == nil {
			defer invFile.Close()
			wg.Add(1)
			go func() {
				defer wg.Done()
				var fields *api.InvoiceFields
				var url string
				var status int
				fields, url, status, invErr = processInvoice(ctx, data, id, invFile, invHandler)
				if invErr != nil {
					invBadType = status == http.StatusBadRequest
					return
				}
				invData = toInvoiceData(fields, url)
			}()
		} else if fields, url := fieldsFromForm(c), c.FormValue(api.PrmInvoiceURL); url != "" || fields != nil {
			if fields == nil {
				fields = &api.InvoiceFields{}
			}
			invData = toInvoiceData(fields, url)
		}
		wg.Wait()

		if audioErr != nil {
			goapp.Log.Error().Err(audioErr).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if invErr != nil {
			goapp.Log.Error().Err(invErr).Send()
			if invBadType {
				return echo.NewHTTPError(http.StatusBadRequest, invErr.Error())
			}
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		input.AudioURL = audioURL
		input.Transcription = trRes
		input.Invoice = invData
		rev, err := review.Assemble(input, time.Now())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		rev.ID = id

		if err := data.DB.InsertReview(ctx, rev); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		if review.NotifyEligible(rev) {
			// a failed dispatch must not fail the persisted review
			err := data.MsgSender.SendMessage(ctx, &messages.NotifyMessage{
				QueueMessage: amessages.QueueMessage{ID: rev.ID}}, messages.Notify)
			if err != nil {
				goapp.Log.Error().Err(err).Str("ID", rev.ID).Msg("can't send notify message")
			}
		}

		res := api.ReviewResult{ID: rev.ID, AudioURL: audioURL,
			FinalText: finalText(rev)}
		if invData != nil {
			res.Fields = *toAPIFields(invData)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func processAudio(ctx context.Context, data *Data, id, lang string, file multipart.File,
	handler *multipart.FileHeader) (string, *persistence.TranscriptionResult, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("can't read audio file: %w", err)
	}
	fn, err := utils.MakeValidateFileName(id, handler.Filename)
	if err != nil {
		return "", nil, err
	}
	url, err := data.Saver.SaveFile(ctx, fn, bytes.NewReader(content), int64(len(content)),
		handler.Header.Get(echo.HeaderContentType))
	if err != nil {
		return "", nil, fmt.Errorf("can't save audio: %w", err)
	}
	res := data.Pipeline.Run(ctx, &tapi.UploadData{
		Params: map[string]string{api.PrmLanguage: lang,
			tapi.PrmFormat:     "pcm",
			tapi.PrmSampleRate: strconv.Itoa(audio.TargetSampleRate),
			tapi.PrmChannels:   "1",
		},
		Files: map[string]io.Reader{api.PrmFile: bytes.NewReader(content)},
	}, lang)
	return url, res, nil
}

func finalText(r *persistence.Review) string {
	if r.FinalText.Valid {
		return r.FinalText.String
	}
	return r.WrittenText.String
}

func toAPIFields(d *persistence.InvoiceData) *api.InvoiceFields {
	return &api.InvoiceFields{
		JobCardNumber:   d.JobCardNumber.String,
		InvoiceNumber:   d.InvoiceNumber.String,
		InvoiceDate:     d.InvoiceDate.String,
		VIN:             d.VIN.String,
		RecipientName:   d.RecipientName.String,
		RecipientMobile: d.RecipientMobile.String,
	}
}

func toInvoiceData(f *api.InvoiceFields, url string) *persistence.InvoiceData {
	return &persistence.InvoiceData{
		JobCardNumber:   utils.ToSQLStr(f.JobCardNumber),
		InvoiceNumber:   utils.ToSQLStr(f.InvoiceNumber),
		InvoiceDate:     utils.ToSQLStr(f.InvoiceDate),
		VIN:             utils.ToSQLStr(f.VIN),
		RecipientName:   utils.ToSQLStr(f.RecipientName),
		RecipientMobile: utils.ToSQLStr(f.RecipientMobile),
		FileURL:         utils.ToSQLStr(url),
	}
}

// fieldsFromForm collects pre-extracted invoice field params, nil if none was posted
func fieldsFromForm(c echo.Context) *api.InvoiceFields {
	res := &api.InvoiceFields{
		JobCardNumber:   c.FormValue(api.PrmJobCardNumber),
		InvoiceNumber:   c.FormValue(api.PrmInvoiceNumber),
		InvoiceDate:     c.FormValue(api.PrmInvoiceDate),
		VIN:             c.FormValue(api.PrmVIN),
		RecipientName:   c.FormValue(api.PrmRecipientName),
		RecipientMobile: c.FormValue(api.PrmRecipientMobile),
	}
	if *res == (api.InvoiceFields{}) {
		return nil
	}
	return res
}

func errMsg(status int, err error) string {
	if status == http.StatusBadRequest {
		return err.Error()
	}
	return http.StatusText(status)
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	allowed := map[string]bool{api.PrmRating: true, api.PrmName: true, api.PrmMobile: true,
		api.PrmLanguage: true, api.PrmText: true, api.PrmCompany: true, api.PrmBranch: true,
		api.PrmClient: true, api.PrmInvoiceURL: true,
		api.PrmJobCardNumber: true, api.PrmInvoiceNumber: true, api.PrmInvoiceDate: true,
		api.PrmVIN: true, api.PrmRecipientName: true, api.PrmRecipientMobile: true}
	for k := range form.Value {
		if !allowed[k] {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	for k := range form.File {
		if k != api.PrmAudio && k != api.PrmInvoice {
			return errors.Errorf("unexpected form file parameter '%s'", k)
		}
	}
	return nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	fhs := form.File[paramName]
	if len(fhs) == 0 {
		return nil, nil, http.ErrMissingFile
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, nil, err
	}
	return f, fhs[0], nil
}
