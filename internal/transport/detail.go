package transport

import (
	"strings"

	"github.com/tidwall/gjson"
)

// detailPaths are tried in order against an error body. They cover a detail
// object with a message, a plain string detail, a request validation list, and
// a top-level message.
var detailPaths = []string{
	"detail.message",
	"detail",
	"detail.0.msg",
	"message",
}

// ExtractDetail returns the human-readable message carried by a structured
// error body, or "" when the body has none.
func ExtractDetail(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}

	for _, path := range detailPaths {
		result := gjson.GetBytes(body, path)
		if result.Type != gjson.String {
			continue
		}
		if msg := strings.TrimSpace(result.Str); msg != "" {
			return result.Str
		}
	}
	return ""
}
