package translator

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

// Client communicates with the external machine-translation engine.
// A failed call is not retried - the caller keeps the original
// transcript instead
type Client struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

// NewClient creates a translation client
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

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate returns text translated from srcLang to dstLang
func (c *Client) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	b, err := json.Marshal(translateRequest{Text: text, SourceLang: srcLang, TargetLang: dstLang})
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
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
	var respData translateResponse
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
