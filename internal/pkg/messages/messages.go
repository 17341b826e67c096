package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "REVU/"
	// Notify queue name
	Notify = st + "Notify"
)

// NotifyMessage is sent when a persisted review needs staff attention
type NotifyMessage struct {
	amessages.QueueMessage
	RequestID string `json:"requestID,omitempty"`
}
