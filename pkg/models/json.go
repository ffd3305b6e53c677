package models

import (
	"bytes"
	"encoding/json"
)

// MarshalIndent renders v as 2-space indented JSON. HTML characters and
// non-ASCII text are written verbatim and there is no trailing newline.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
