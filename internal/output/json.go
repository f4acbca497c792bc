package output

import (
	"encoding/json"
	"fmt"
	"io"
)

const jsonIndent = "  "

// JSON writes data as indented JSON followed by a newline.
func JSON(w io.Writer, data any) error {
	return encode(w, data, jsonIndent)
}

// JSONLine writes data as a single line of JSON, for streams where each
// record is one line (NDJSON).
func JSONLine(w io.Writer, data any) error {
	return encode(w, data, "")
}

func encode(w io.Writer, data any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ErrorResponse is the JSON body printed for a failed command in --json
// mode.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// JSONError writes an ErrorResponse. Write failures are ignored since the
// process is about to exit with an error anyway.
func JSONError(w io.Writer, code, msg string, details map[string]any) {
	_ = JSON(w, ErrorResponse{Error: msg, Code: code, Details: details})
}

// BatchResult is the per-id outcome of a command applied to several tasks.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
