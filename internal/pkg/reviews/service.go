package reviews

import (
	"context"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/api"
	"github.com/airenas/revu/internal/pkg/persistence"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileReader loads file by name
type FileReader interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// DB loads reviews
type DB interface {
	LoadReview(ctx context.Context, id string) (*persistence.Review, error)
	ListReviews(ctx context.Context, filter *persistence.ListFilter) ([]*persistence.Review, error)
}

// Data keeps data required for service work
type Data struct {
	Port   int
	Reader FileReader
	DB     DB
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP REVU reviews service")

	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 5 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Reader == nil {
		return errors.New("no file reader")
	}
	if data.DB == nil {
		return errors.New("no DB")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("revu_reviews", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/reviews", list(data))
	e.GET("/audio/:id", downloadAudio(data))
	e.HEAD("/audio/:id", downloadAudio(data))
	e.GET("/invoice/:id", downloadInvoice(data))
	e.HEAD("/invoice/:id", downloadInvoice(data))
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

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()
		ctx := c.Request().Context()

		filter, err := makeFilter(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		reviews, err := data.DB.ListReviews(ctx, filter)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]*api.ReviewData, 0, len(reviews))
		for _, r := range reviews {
			res = append(res, toAPIReview(r))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func makeFilter(c echo.Context) (*persistence.ListFilter, error) {
	res := &persistence.ListFilter{
		CompanyID: c.QueryParam("company"),
		BranchID:  c.QueryParam("branch"),
		ClientID:  c.QueryParam("client"),
	}
	var err error
	if res.From, err = parseTime(c.QueryParam("from")); err != nil {
		return nil, errors.Errorf("wrong from value '%s'", c.QueryParam("from"))
	}
	if res.To, err = parseTime(c.QueryParam("to")); err != nil {
		return nil, errors.Errorf("wrong to value '%s'", c.QueryParam("to"))
	}
	return res, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func toAPIReview(r *persistence.Review) *api.ReviewData {
	return &api.ReviewData{
		ID:             r.ID,
		CompanyID:      r.CompanyID,
		BranchID:       r.BranchID.String,
		ClientID:       r.ClientID,
		CustomerName:   r.CustomerName,
		CustomerMobile: r.CustomerMobile.String,
		Rating:         r.Rating,
		Classification: r.Classification,
		AudioURL:       r.AudioURL.String,
		FinalText:      r.FinalText.String,
		WrittenText:    r.WrittenText.String,
		InvoiceURL:     r.Invoice.FileURL.String,
		Fields: api.InvoiceFields{
			JobCardNumber:   r.Invoice.JobCardNumber.String,
			InvoiceNumber:   r.Invoice.InvoiceNumber.String,
			InvoiceDate:     r.Invoice.InvoiceDate.String,
			VIN:             r.Invoice.VIN.String,
			RecipientName:   r.Invoice.RecipientName.String,
			RecipientMobile: r.Invoice.RecipientMobile.String,
		},
		Created: r.Created.Format(time.RFC3339),
	}
}

func downloadAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download audio method")()
		return download(c, data, func(r *persistence.Review) string { return r.AudioURL.String })
	}
}

func downloadInvoice(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download invoice method")()
		return download(c, data, func(r *persistence.Review) string { return r.Invoice.FileURL.String })
	}
}

func download(c echo.Context, data *Data, urlF func(*persistence.Review) string) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No ID")
	}
	rev, err := data.DB.LoadReview(c.Request().Context(), id)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if rev == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no review by ID")
	}
	fileURL := urlF(rev)
	if fileURL == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no file by ID")
	}
	name, err := objectName(rev.ID, fileURL)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return serveFile(c, data, name)
}

// objectName maps the stored URL back to the storage key <id>/<file>
func objectName(id, fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", errors.Wrapf(err, "wrong file URL '%s'", fileURL)
	}
	return path.Join(id, path.Base(u.Path)), nil
}

func serveFile(c echo.Context, data *Data, name string) error {
	goapp.Log.Info().Str("file", name).Msg("loading")
	file, err := data.Reader.LoadFile(c.Request().Context(), name)
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		goapp.Log.Error().Msg(`file does implement "interface{ Stat() (fs.FileInfo, error)"`)
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}
	stat, err := stGetter.Stat()
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}

	w := c.Response()
	w.Header().Set("Content-Disposition", "attachment; filename="+path.Base(stat.Name()))
	http.ServeContent(w, c.Request(), stat.Name(), stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
