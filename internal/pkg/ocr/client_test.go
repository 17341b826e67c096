package ocr

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/revu/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://srv:8080/ocr")
	assert.Nil(t, err)
	assert.NotNil(t, c)
}

func TestNewClient_Fail(t *testing.T) {
	_, err := NewClient("")
	assert.NotNil(t, err)
}

func TestExtractText(t *testing.T) {
	var gotMime string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMime = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"text":"Invoice No : INVA1"}`))
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL)
	require.Nil(t, err)
	txt, err := c.ExtractText(test.Ctx(t), []byte("file data"), "application/pdf")
	require.Nil(t, err)
	assert.Equal(t, "Invoice No : INVA1", txt)
	assert.Equal(t, "application/pdf", gotMime)
}

func TestExtractText_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL)
	require.Nil(t, err)
	_, err = c.ExtractText(test.Ctx(t), []byte("file data"), "application/pdf")
	assert.NotNil(t, err)
}
