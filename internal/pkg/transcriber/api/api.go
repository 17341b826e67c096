package api

import (
	"context"
	"io"
)

// Upload form parameter names for the audio format declaration
const (
	PrmFormat     = "format"
	PrmSampleRate = "sampleRate"
	PrmChannels   = "channels"
)

// UploadData keeps structure for upload method
type UploadData struct {
	Params map[string]string
	Files  map[string]io.Reader
}

// StatusData keeps structure for status method
type StatusData struct {
	ID             string
	Completed      bool
	ErrorCode      string
	Error          string
	Status         string
	Progress       int
	RecognizedText string `json:"recognizedText,omitempty"`
}

// Transcriber provides communication to the external transcription service
type Transcriber interface {
	Upload(ctx context.Context, audio *UploadData) (string, error)
	HookToStatus(ctx context.Context, ID string) (<-chan StatusData, func(), error)
	GetStatus(ctx context.Context, ID string) (*StatusData, error)
	Clean(ctx context.Context, ID string) error
}
