package arcgis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuth reports missing, rejected or expired credentials.
	ErrAuth = errors.New("arcgis auth")

	// ErrLayerNotFound reports a layer item that does not exist or is not shared with the user.
	ErrLayerNotFound = errors.New("arcgis layer not found")
)

// APIError is the error object ArcGIS REST endpoints return, usually with HTTP 200.
type APIError struct {
	Code        int      `json:"code"`
	MessageCode string   `json:"messageCode,omitempty"`
	Message     string   `json:"message"`
	Details     []string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// isTokenError reports token codes (498 invalid or expired, 499 required)
// and plain HTTP 401 responses. A 403 names an item the user cannot see.
func (e *APIError) isTokenError() bool {
	switch e.Code {
	case 498, 499, 401:
		return true
	}
	return false
}
