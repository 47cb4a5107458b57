package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// User-facing messages for failures that carry no usable server message
const (
	MessageUnavailable = "The requested resource is not available"
	MessageUnexpected  = "An unexpected error occurred, please try again"
	MessageTimeout     = "The request took too long to complete, please try again"
	MessageNetwork     = "Network error: unable to reach the server"
	MessageCancelled   = "The request was cancelled"
	MessageTooLarge    = "The response from the server was too large"
	MessageBadPayload  = "The server returned an unexpected response"
)

// htmlMarkers identify an HTML error page returned where JSON was expected.
// Matched case-insensitively as substrings.
var htmlMarkers = []string{"<!doctype", "<html", "cannot get"}

type transportKind string

const (
	kindTimeout   transportKind = "timeout"
	kindCancelled transportKind = "cancelled"
	kindNetwork   transportKind = "network"
)

// NormalizeResponse turns a non-2xx response into an *AppError. The message
// is taken from the body in this order: "message", "error" (string),
// "error.message", the raw string body. HTML pages and empty 404 bodies
// become MessageUnavailable; anything else falls back to MessageUnexpected.
// The remaining top-level fields of a JSON object body land in Metadata.
func NormalizeResponse(statusCode int, body []byte) *apperrors.AppError {
	message, fields := extractMessage(bytes.TrimSpace(body))
	if message == "" {
		if statusCode == http.StatusNotFound {
			message = MessageUnavailable
		} else {
			message = MessageUnexpected
		}
	}

	appErr := apperrors.NewAppError(apperrors.CodeForStatus(statusCode), message, "").WithStatus(statusCode)
	for k, v := range fields {
		appErr.WithMetadata(k, v)
	}
	return appErr
}

func extractMessage(body []byte) (string, map[string]any) {
	if len(body) == 0 {
		return "", nil
	}
	if !gjson.ValidBytes(body) {
		return rawMessage(string(body)), nil
	}

	result := gjson.ParseBytes(body)
	switch {
	case result.IsObject():
		return objectMessage(result), objectFields(body)
	case result.Type == gjson.String:
		return rawMessage(result.Str), nil
	default:
		return "", nil
	}
}

func objectMessage(obj gjson.Result) string {
	for _, path := range []string{"message", "error", "error.message"} {
		if msg := textOf(obj.Get(path)); msg != "" {
			return msg
		}
	}
	return ""
}

// textOf reads a string, or joins an array of strings as some validation
// layers report several messages at once.
func textOf(r gjson.Result) string {
	switch {
	case r.Type == gjson.String:
		return strings.TrimSpace(r.Str)
	case r.IsArray():
		var parts []string
		for _, item := range r.Array() {
			if item.Type == gjson.String && strings.TrimSpace(item.Str) != "" {
				parts = append(parts, strings.TrimSpace(item.Str))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func objectFields(body []byte) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	delete(fields, "message")
	delete(fields, "statusCode")
	return fields
}

func rawMessage(s string) string {
	s = strings.TrimSpace(s)
	if looksLikeHTML(s) {
		return MessageUnavailable
	}
	return s
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range htmlMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NormalizeTransport turns a failure that produced no response into an
// *AppError without a status code.
func NormalizeTransport(ctx context.Context, err error) *apperrors.AppError {
	switch classifyTransport(ctx, err) {
	case kindTimeout:
		return apperrors.NewAppError(apperrors.CodeTimeout, MessageTimeout, "").WithCause(err)
	case kindCancelled:
		return apperrors.NewAppError(apperrors.CodeCancelled, MessageCancelled, "").WithCause(err)
	default:
		return apperrors.NewAppError(apperrors.CodeNetwork, MessageNetwork, "").WithCause(err)
	}
}

func classifyTransport(ctx context.Context, err error) transportKind {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return kindCancelled
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return kindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return kindCancelled
	}
	return kindNetwork
}
