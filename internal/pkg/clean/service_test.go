package clean

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/revu/internal/pkg/test"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	tData *Data
	tEcho *echo.Echo
)

func initTest(t *testing.T) {
	tData = &Data{}
	tData.Cleaner = newCleanMock(false)
	tEcho = initRoutes(tData)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/review/1", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Clean(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/review/1", nil)
	test.Code(t, tEcho, req, http.StatusOK)
}

func Test_Clean_Fails(t *testing.T) {
	initTest(t)
	tData.Cleaner = newCleanMock(true)
	tEcho = initRoutes(tData)
	req := httptest.NewRequest(http.MethodDelete, "/review/1", nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_Group(t *testing.T) {
	c1, c2 := newCleanMock(false), newCleanMock(false)
	g := &Group{Jobs: []Cleaner{c1, c2}}
	require.Nil(t, g.Clean(context.Background(), "1"))
	c1.AssertNumberOfCalls(t, "Clean", 1)
	c2.AssertNumberOfCalls(t, "Clean", 1)
}

func Test_Group_RunsAllOnFailure(t *testing.T) {
	c1, c2 := newCleanMock(true), newCleanMock(false)
	g := &Group{Jobs: []Cleaner{c1, c2}}
	err := g.Clean(context.Background(), "1")
	assert.NotNil(t, err)
	c2.AssertNumberOfCalls(t, "Clean", 1)
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		data    *Data
		wantErr bool
	}{
		{name: "OK", data: &Data{Cleaner: newCleanMock(false)}, wantErr: false},
		{name: "Fail Cleaner", data: &Data{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockCleaner struct{ mock.Mock }

func (m *mockCleaner) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newCleanMock(fail bool) *mockCleaner {
	res := &mockCleaner{}
	var err error
	if fail {
		err = errors.New("clean error")
	}
	res.On("Clean", mock.Anything, mock.Anything).Return(err)
	return res
}
