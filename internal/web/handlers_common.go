package web

// handlers_common.go holds request parsing helpers shared across handlers.

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/oeedash/internal/core"
)

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidParam, name, val)
	}
	return i, nil
}

// parseBool accepts the usual checkbox and form spellings. Empty is false.
func parseBool(name, val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s=%q", errInvalidParam, name, val)
	}
}

// kindParam resolves the {kind} URL parameter to a registered kind definition.
func kindParam(r *http.Request) (core.KindDefinition, error) {
	return lookupKind(chi.URLParam(r, "kind"))
}

func lookupKind(name string) (core.KindDefinition, error) {
	kind := core.RecordKind(strings.ToLower(strings.TrimSpace(name)))
	def, ok := core.Get(kind)
	if !ok {
		return core.KindDefinition{}, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, name)
	}
	return def, nil
}

// importIDParam parses the {importID} URL parameter.
func importIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "importID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: import id %q", errInvalidParam, raw)
	}
	return id, nil
}

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
