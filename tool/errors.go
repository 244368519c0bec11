package tool

// Error is the contractual kind for user-facing tool failures: execution
// problems the model should see and react to (a timeout, a refused
// operation). The registry converts it into an error-carrying Result instead
// of propagating it, so only programming defects travel up as Go errors.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }
