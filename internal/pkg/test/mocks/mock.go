package mocks

import (
	"context"
	"io"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/airenas/revu/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, name, r, size, contentType)
	return args.String(0), args.Error(1)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) DeleteFolder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertReview(ctx context.Context, r *persistence.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *DB) LoadReview(ctx context.Context, id string) (*persistence.Review, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Review](args.Get(0)), args.Error(1)
}

func (m *DB) ListReviews(ctx context.Context, filter *persistence.ListFilter) ([]*persistence.Review, error) {
	args := m.Called(ctx, filter)
	return to[[]*persistence.Review](args.Get(0)), args.Error(1)
}

func (m *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Upload(ctx context.Context, audio *api.UploadData) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func (m *Transcriber) HookToStatus(ctx context.Context, ID string) (<-chan api.StatusData, func(), error) {
	args := m.Called(ctx, ID)
	return to[<-chan api.StatusData](args.Get(0)), to[func()](args.Get(1)), args.Error(2)
}

func (m *Transcriber) GetStatus(ctx context.Context, ID string) (*api.StatusData, error) {
	args := m.Called(ctx, ID)
	return to[*api.StatusData](args.Get(0)), args.Error(1)
}

func (m *Transcriber) Clean(ctx context.Context, ID string) error {
	args := m.Called(ctx, ID)
	return args.Error(0)
}

// TranscriberProvider is transcriber discovery mock
type TranscriberProvider struct{ mock.Mock }

func (m *TranscriberProvider) Get(srv string, allowNew bool) (api.Transcriber, string, error) {
	args := m.Called(srv, allowNew)
	return to[api.Transcriber](args.Get(0)), args.String(1), args.Error(2)
}

// Translator is translation client mock
type Translator struct{ mock.Mock }

func (m *Translator) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	args := m.Called(ctx, text, srcLang, dstLang)
	return args.String(0), args.Error(1)
}

// Recognizer is OCR client mock
type Recognizer struct{ mock.Mock }

func (m *Recognizer) ExtractText(ctx context.Context, content []byte, mime string) (string, error) {
	args := m.Called(ctx, content, mime)
	return args.String(0), args.Error(1)
}

// To coerces a possibly nil mock value to the wanted type
func To[T interface{}](val interface{}) T {
	return to[T](val)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
