package identity

// Reason classifies why a bearer token failed to resolve.
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonWrongTokenType   Reason = "wrong_token_type"
	ReasonExpired          Reason = "expired"
	ReasonUnknownSubject   Reason = "unknown_subject"
	ReasonInactive         Reason = "inactive"
)

// UnauthenticatedError is returned when a token cannot be resolved into a
// principal. The Reason lets the boundary map each failure to a distinct
// response; Inactive is a 400-class condition, everything else is 401.
type UnauthenticatedError struct {
	Reason Reason
}

func (e *UnauthenticatedError) Error() string {
	return "identity: unauthenticated: " + string(e.Reason)
}

func unauthenticated(reason Reason) *UnauthenticatedError {
	return &UnauthenticatedError{Reason: reason}
}
