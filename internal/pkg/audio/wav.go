package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// TargetSampleRate is the canonical rate all stored audio is encoded at
	TargetSampleRate = 16000

	headerLen     = 44
	channels      = 1
	bitsPerSample = 16
)

// ErrNoAudio indicates that no samples were captured
var ErrNoAudio = fmt.Errorf("no audio captured")

// Resample converts samples from one rate to another using linear interpolation.
// The algorithm is deliberately simple and deterministic: for output index i the
// source position is i*from/to, interpolated between the neighbour samples by
// the fractional part
func Resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	res := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		l := int(math.Floor(pos))
		r := int(math.Ceil(pos))
		if r >= len(samples) {
			r = len(samples) - 1
		}
		frac := float32(pos - float64(l))
		res = append(res, samples[l]+(samples[r]-samples[l])*frac)
	}
	return res
}

// EncodeWAV encodes float PCM samples as a mono 16-bit little-endian WAV blob.
// Samples are clamped to [-1, 1] before conversion
func EncodeWAV(samples []float32, rate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	dataLen := len(samples) * 2
	res := make([]byte, 0, headerLen+dataLen)
	res = append(res, []byte("RIFF")...)
	res = binary.LittleEndian.AppendUint32(res, uint32(36+dataLen))
	res = append(res, []byte("WAVE")...)
	res = append(res, []byte("fmt ")...)
	res = binary.LittleEndian.AppendUint32(res, 16)
	res = binary.LittleEndian.AppendUint16(res, 1) // PCM
	res = binary.LittleEndian.AppendUint16(res, channels)
	res = binary.LittleEndian.AppendUint32(res, uint32(rate))
	res = binary.LittleEndian.AppendUint32(res, uint32(rate*channels*bitsPerSample/8))
	res = binary.LittleEndian.AppendUint16(res, channels*bitsPerSample/8)
	res = binary.LittleEndian.AppendUint16(res, bitsPerSample)
	res = append(res, []byte("data")...)
	res = binary.LittleEndian.AppendUint32(res, uint32(dataLen))
	for _, s := range samples {
		res = binary.LittleEndian.AppendUint16(res, uint16(toInt16(s)))
	}
	return res, nil
}

func toInt16(s float32) int16 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}
