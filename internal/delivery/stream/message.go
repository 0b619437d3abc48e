package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// PayloadField is the stream entry field holding the JSON transition.
const PayloadField = "payload"

var errNoPayload = errors.New("message has no payload field")

// ParseMessage decodes a chore transition from a stream entry. When the
// payload carries no occurred_at, the entry ID timestamp is used.
func ParseMessage(msg redis.XMessage) (entities.ChoreTransition, error) {
	raw, ok := msg.Values[PayloadField]
	if !ok {
		return entities.ChoreTransition{}, errNoPayload
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return entities.ChoreTransition{}, fmt.Errorf("unexpected payload type %T", raw)
	}

	var t entities.ChoreTransition
	if err := json.Unmarshal(data, &t); err != nil {
		return entities.ChoreTransition{}, fmt.Errorf("decode transition: %w", err)
	}

	if t.OccurredAt.IsZero() {
		if at, ok := idTime(msg.ID); ok {
			t.OccurredAt = at
		}
	}

	return t, nil
}

// idTime extracts the millisecond timestamp of a stream ID like "1715000000000-0".
func idTime(id string) (time.Time, bool) {
	ms, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n).UTC(), true
}
