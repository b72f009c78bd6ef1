package redis

import (
	"encoding/json"
	"fmt"

	"loantracker/internal/core"
)

// DefaultPrefix matches the key names used by the browser client. Values are
// not interchangeable with its local storage: amounts here are integer cents.
const DefaultPrefix = "loanTracker"

type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) people() string { return k.prefix + "_people" }

func (k keys) transactions(personID string) string {
	return k.prefix + "_transactions_" + personID
}

func (k keys) sharedLinks() string { return k.prefix + "_sharedLinks" }

// decodeList parses a stored JSON array. An absent key is an empty list.
func decodeList[T any](key string, b []byte) ([]T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, core.ErrStoreUnreadable)
	}
	return out, nil
}
