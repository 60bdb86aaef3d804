package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CloudSyncMessage carries one serialized value to be written to the remote
// store by the worker. The payload travels whole: the value is small and the
// worker must not depend on the API's local store.
type CloudSyncMessage struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCloudSyncMessage(key, payload string) *CloudSyncMessage {
	return &CloudSyncMessage{
		ID:        uuid.New(),
		Key:       key,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func (m *CloudSyncMessage) Validate() error {
	if m.ID == uuid.Nil {
		return errors.New("missing message id")
	}
	if m.Key == "" {
		return errors.New("missing key")
	}
	return nil
}

func (m *CloudSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CloudSyncMessageFromJSON(data []byte) (*CloudSyncMessage, error) {
	var msg CloudSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
