package datasetagent

import "encoding/json"

func decodeJSON(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
