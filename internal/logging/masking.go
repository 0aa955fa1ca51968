// Package logging provides utilities for secure logging with data masking.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// SensitiveFields are JSON keys whose values never reach the logs: login
// passwords, plaintext app passwords returned by Create, and session ids.
var SensitiveFields = []string{"password", "token", "session"}

// MaskHeader redacts sensitive header values based on header name.
// Returns the redacted value suitable for logging.
//
// Rules:
// - Cookies and password/secret headers: "[REDACTED]"
// - Authorization: scheme kept, credentials replaced (e.g., "Basic ****")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	// Cookies carry session ids.
	if lowerName == "cookie" || lowerName == "set-cookie" {
		return Redacted
	}

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "token") {
		return Redacted
	}

	if lowerName == "authorization" {
		// Basic credentials are base64 of "login:app-password"; no part is safe to show.
		if scheme, _, ok := strings.Cut(value, " "); ok && scheme != "" {
			return scheme + " ****"
		}
		return "****"
	}

	return value
}

// MaskJSONBody replaces the value of every key in fields, at any depth, with
// "[REDACTED]". Key comparison is case-insensitive.
//
// Returns the masked JSON as bytes, or the original if the body is not JSON.
func MaskJSONBody(body []byte, fields []string) []byte {
	if len(body) == 0 || len(fields) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	deny := make(map[string]bool, len(fields))
	for _, f := range fields {
		deny[strings.ToLower(f)] = true
	}

	result, err := json.Marshal(maskJSONValue(data, deny))
	if err != nil {
		return body
	}
	return result
}

// maskJSONValue walks objects and arrays and redacts denied keys.
func maskJSONValue(value any, deny map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if deny[strings.ToLower(key)] {
				result[key] = Redacted
				continue
			}
			result[key] = maskJSONValue(val, deny)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, deny)
		}
		return result
	default:
		return value
	}
}

// FormatBinaryData formats binary data for logging.
// Returns a human-readable size indicator.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
