package gateway

import (
	"encoding/json"
	"time"
)

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
