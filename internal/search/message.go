package search

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tbourn/donor-search/internal/domain"
)

// ParseRoundMessage decodes and validates a queued round. Missing identity
// or negative counters yield an OperationalError.
func ParseRoundMessage(body []byte) (*domain.SearchRoundMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, operational(nil, "empty round message")
	}
	var m domain.SearchRoundMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, operational(err, "decode round message")
	}

	switch {
	case strings.TrimSpace(m.SeekerID) == "":
		return nil, operational(nil, "round message: missing seekerId")
	case strings.TrimSpace(m.RequestID) == "":
		return nil, operational(nil, "round message: missing requestPostId")
	case m.CreatedAt <= 0:
		return nil, operational(nil, "round message: missing createdAt")
	case m.CurrentNeighborSearchLevel < 0 || m.RetryCount < 0 || m.ReinstatedRetryCount < 0:
		return nil, operational(nil, "round message: negative counter")
	}
	for i, c := range m.RemainingGeohashesToProcess {
		m.RemainingGeohashesToProcess[i] = strings.ToLower(c)
	}
	return &m, nil
}

// EncodeRoundMessage is the inverse of ParseRoundMessage.
func EncodeRoundMessage(m *domain.SearchRoundMessage) ([]byte, error) {
	return json.Marshal(m)
}
