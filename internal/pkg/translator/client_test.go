package translator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/revu/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://srv:8080/translate")
	assert.Nil(t, err)
	assert.NotNil(t, c)
}

func TestNewClient_Fail(t *testing.T) {
	_, err := NewClient("")
	assert.NotNil(t, err)
}

func TestTranslate(t *testing.T) {
	var got translateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"text":"good service"}`))
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL)
	require.Nil(t, err)
	res, err := c.Translate(test.Ctx(t), "olia tekstas", "ta", "en")
	require.Nil(t, err)
	assert.Equal(t, "good service", res)
	assert.Equal(t, translateRequest{Text: "olia tekstas", SourceLang: "ta", TargetLang: "en"}, got)
}

func TestTranslate_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL)
	require.Nil(t, err)
	_, err = c.Translate(test.Ctx(t), "olia", "ta", "en")
	assert.NotNil(t, err)
}

func TestNewOpenAIClient_Fail(t *testing.T) {
	_, err := NewOpenAIClient("", "")
	assert.NotNil(t, err)
}
