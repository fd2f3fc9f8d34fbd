package service

import (
	"errors"
	"fmt"
)

// GatewayErrorKind classifies a gateway failure into the user-facing
// categories.
type GatewayErrorKind string

const (
	// KindAuth: missing, malformed or rejected credential.
	KindAuth GatewayErrorKind = "auth"
	// KindModelUnavailable: the requested model is not found or not
	// entitled to this credential.
	KindModelUnavailable GatewayErrorKind = "model_unavailable"
	// KindTransport: any other HTTP, network or malformed-response failure.
	KindTransport GatewayErrorKind = "transport"
)

// GatewayError is the structured failure surfaced by the model gateway.
// Status carries the provider's error status code (e.g. INVALID_ARGUMENT)
// when one was returned; retry decisions inspect it, never message text.
type GatewayError struct {
	Kind    GatewayErrorKind
	Status  string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gateway: %s (%s): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// AsGatewayError unwraps err into a *GatewayError if it is one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// UserMessage renders a failure as a short explanation for the student,
// never a raw stack trace.
func UserMessage(err error) string {
	gwErr, ok := AsGatewayError(err)
	if !ok {
		return "❌ The request failed. Please try again."
	}
	switch gwErr.Kind {
	case KindAuth:
		return "⚠️ Authentication failed: the API key is missing, invalid or expired."
	case KindModelUnavailable:
		return "⚠️ Model unavailable: this key has no access to the requested model."
	default:
		return fmt.Sprintf("❌ Request failed: %s", gwErr.Message)
	}
}
