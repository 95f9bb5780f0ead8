package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Richmiz/Coinlytics/internal/viewstate"
)

// parseViewKind maps a path segment onto a known view kind.
func parseViewKind(s string) (viewstate.ViewKind, bool) {
	kind := viewstate.ViewKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range viewstate.Kinds() {
		if kind == known {
			return kind, true
		}
	}
	return "", false
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
