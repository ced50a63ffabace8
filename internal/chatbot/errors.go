package chatbot

// ValidationError reports a request that cannot be served as sent.
// Message is safe to show to the caller.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
