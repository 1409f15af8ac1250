package board

// AuthenticationError reports a missing or unusable API token. The engine
// refuses to touch the remote service in that state.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication: " + e.Reason
}

// ErrMissingToken is the precondition failure for an engine built without a
// token-bearing client.
var ErrMissingToken = &AuthenticationError{Reason: "api token required"}
