package transcriber

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airenas/revu/internal/pkg/test"
	tapi "github.com/airenas/revu/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://upload", "http://status", "http://clean")
	assert.Nil(t, err)
	assert.NotNil(t, c)
}

func TestNewClient_Fail(t *testing.T) {
	tests := []struct {
		name                  string
		upload, status, clean string
	}{
		{name: "no upload", upload: "", status: "http://status", clean: "http://clean"},
		{name: "no status", upload: "http://upload", status: "", clean: "http://clean"},
		{name: "no clean", upload: "http://upload", status: "http://status", clean: ""},
		{name: "bad status", upload: "http://upload", status: "olia", clean: "http://clean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.upload, tt.status, tt.clean)
			assert.NotNil(t, err)
		})
	}
}

func TestUpload(t *testing.T) {
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, r.ParseMultipartForm(1 << 20))
		gotLang = r.FormValue("language")
		_, _ = w.Write([]byte(`{"id":"ext1"}`))
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL, "http://status", "http://clean")
	require.Nil(t, err)
	id, err := c.Upload(test.Ctx(t), &tapi.UploadData{
		Params: map[string]string{"language": "ta"},
		Files:  files("a.wav", "RIFF data")})
	require.Nil(t, err)
	assert.Equal(t, "ext1", id)
	assert.Equal(t, "ta", gotLang)
}

func TestUpload_FailNoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL, "http://status", "http://clean")
	require.Nil(t, err)
	_, err = c.Upload(test.Ctx(t), &tapi.UploadData{Files: files("a.wav", "data")})
	assert.NotNil(t, err)
}

func files(name, content string) map[string]io.Reader {
	return map[string]io.Reader{name: strings.NewReader(content)}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/status/ext1"))
		_ = json.NewEncoder(w).Encode(tapi.StatusData{ID: "ext1", Status: "COMPLETED", RecognizedText: "olia"})
	}))
	defer srv.Close()
	c, err := NewClient("http://upload", srv.URL, "http://clean")
	require.Nil(t, err)
	st, err := c.GetStatus(test.Ctx(t), "ext1")
	require.Nil(t, err)
	assert.Equal(t, "COMPLETED", st.Status)
	assert.Equal(t, "olia", st.RecognizedText)
}

func TestClean(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
	}))
	defer srv.Close()
	c, err := NewClient("http://upload", "http://status", srv.URL)
	require.Nil(t, err)
	err = c.Clean(test.Ctx(t), "ext1")
	require.Nil(t, err)
	assert.Equal(t, "/ext1", gotPath)
}
