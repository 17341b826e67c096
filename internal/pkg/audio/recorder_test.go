package audio

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSource struct {
	frames [][]float32
	at     int
	err    error
	closed bool
}

func (s *testSource) Read() ([]float32, error) {
	if s.at >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	res := s.frames[s.at]
	s.at++
	return res, nil
}

func (s *testSource) Close() error {
	s.closed = true
	return nil
}

func TestRecorder(t *testing.T) {
	src := &testSource{frames: [][]float32{{0, 0.1}, {0.2, 0.3}}}
	r, err := NewRecorder(context.Background(), src, TargetSampleRate)
	require.Nil(t, err)
	b, err := r.Stop()
	require.Nil(t, err)
	assert.Equal(t, 44+4*2, len(b))
	assert.True(t, src.closed)
}

func TestRecorder_NoAudio(t *testing.T) {
	src := &testSource{}
	r, err := NewRecorder(context.Background(), src, TargetSampleRate)
	require.Nil(t, err)
	_, err = r.Stop()
	assert.Equal(t, ErrNoAudio, err)
	assert.True(t, src.closed)
}

func TestRecorder_ReadFail_ClosesSource(t *testing.T) {
	src := &testSource{frames: [][]float32{{0.1}}, err: fmt.Errorf("olia err")}
	r, err := NewRecorder(context.Background(), src, TargetSampleRate)
	require.Nil(t, err)
	_, err = r.Stop()
	assert.NotNil(t, err)
	assert.True(t, src.closed)
}

func TestRecorder_Resamples(t *testing.T) {
	src := &testSource{frames: [][]float32{make([]float32, 480)}}
	r, err := NewRecorder(context.Background(), src, 48000)
	require.Nil(t, err)
	b, err := r.Stop()
	require.Nil(t, err)
	assert.Equal(t, 44+160*2, len(b))
}

func TestRecorder_Validates(t *testing.T) {
	_, err := NewRecorder(context.Background(), nil, TargetSampleRate)
	assert.NotNil(t, err)
	_, err = NewRecorder(context.Background(), &testSource{}, 0)
	assert.NotNil(t, err)
}
