package audio

import (
	"context"
	"fmt"
	"io"

	"github.com/airenas/go-app/pkg/goapp"
)

// Source provides fixed-size PCM frames from an audio device.
// Read returns io.EOF when the stream ends
type Source interface {
	Read() ([]float32, error)
	Close() error
}

// Recorder accumulates frames from a Source and encodes one WAV blob on Stop.
// It owns the Source exclusively for the duration of one recording and
// closes it on every exit path
type Recorder struct {
	source Source
	rate   int

	frames  chan []float32
	samples []float32
	readErr chan error
}

// NewRecorder starts the capture loop. rate is the native sample rate of the source
func NewRecorder(ctx context.Context, source Source, rate int) (*Recorder, error) {
	if source == nil {
		return nil, fmt.Errorf("no source")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("wrong sample rate %d", rate)
	}
	res := &Recorder{source: source, rate: rate,
		frames: make(chan []float32, 16), readErr: make(chan error, 1)}
	go res.captureLoop(ctx)
	return res, nil
}

func (r *Recorder) captureLoop(ctx context.Context) {
	defer close(r.frames)
	for {
		frame, err := r.source.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			r.readErr <- err
			return
		}
		select {
		case r.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// Stop drains remaining frames, releases the source and returns the encoded WAV
// at the canonical target rate. Returns ErrNoAudio if nothing was captured
func (r *Recorder) Stop() ([]byte, error) {
	defer func() {
		if err := r.source.Close(); err != nil {
			goapp.Log.Error().Err(err).Msg("source close error")
		}
	}()
	for frame := range r.frames {
		r.samples = append(r.samples, frame...)
	}
	select {
	case err := <-r.readErr:
		return nil, fmt.Errorf("can't read source: %w", err)
	default:
	}
	if len(r.samples) == 0 {
		return nil, ErrNoAudio
	}
	return EncodeWAV(Resample(r.samples, r.rate, TargetSampleRate), TargetSampleRate)
}
