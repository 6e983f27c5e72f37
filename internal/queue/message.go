package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// ErrInvalidMessage is returned when a payload cannot be used as a parse job.
var ErrInvalidMessage = errors.New("invalid queue message")

// Message asks a worker to parse one uploaded document.
type Message struct {
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a parse job for a document.
func NewMessage(documentID, userID, requestID string, now time.Time) Message {
	return Message{
		DocumentID: documentID,
		UserID:     userID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. Payloads without a
// document id or from a newer producer are rejected.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	msg.DocumentID = strings.TrimSpace(msg.DocumentID)
	if msg.DocumentID == "" {
		return msg, fmt.Errorf("%w: missing document id", ErrInvalidMessage)
	}
	if msg.Version > MessageVersion {
		return msg, fmt.Errorf("%w: unsupported version %d", ErrInvalidMessage, msg.Version)
	}
	return msg, nil
}
