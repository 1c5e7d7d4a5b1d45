package acx

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderflow/models"
)

// TransportError wraps a network failure or a malformed JSON body. The
// transport never retries these; poll workers log them and wait for the
// next tick.
type TransportError struct {
	URL  string
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("transport error for %s: %v (body: %s)", e.URL, e.Err, e.Body)
	}
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SymbolResolutionError is returned when the configured pair has no
// matching venue market. It is the only fatal startup condition.
type SymbolResolutionError struct {
	Base  string
	Quote string
}

func (e *SymbolResolutionError) Error() string {
	return fmt.Sprintf("no venue market matches pair %s/%s", e.Base, e.Quote)
}

// isStaleNonce reports whether a venue response rejects the request
// because the signed nonce was not greater than the last one seen. The
// venue embeds the rejection in a 200 body, either as an error envelope
// or as a bare top-level message.
func isStaleNonce(raw json.RawMessage) bool {
	var envelope models.AcxErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false
	}
	if envelope.Error != nil && isStaleNonceMessage(envelope.Error.Message) {
		return true
	}
	return isStaleNonceMessage(envelope.Message)
}

func isStaleNonceMessage(msg string) bool {
	msg = strings.ToLower(msg)
	if !strings.Contains(msg, "small") {
		return false
	}
	return strings.Contains(msg, "tonce") || strings.Contains(msg, "nonce")
}
