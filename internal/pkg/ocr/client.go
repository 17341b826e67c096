package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// Client communicates with the external OCR engine.
// A failed call is not retried - the caller degrades the
// corresponding fields instead
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

// NewClient creates an OCR client
func NewClient(url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	res := Client{}
	res.url = url
	res.timeout = time.Second * 50
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type ocrResponse struct {
	Text string `json:"text"`
}

// ExtractText sends the invoice file and returns recognized text
func (c *Client) ExtractText(ctx context.Context, content []byte, mime string) (string, error) {
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mime)
	req = req.WithContext(ctx)
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't unmarshal: %w", err)
	}
	return respData.Text, nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
