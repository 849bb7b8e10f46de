package gateway

// Error carries the full context of a failed API request. A non-zero
// Status means the server was reached and rejected the request; those
// failures are surfaced, never queued.
type Error struct {
	URL      string
	Method   string
	Status   int
	Body     string
	TheError error
}

func (e *Error) Error() string {
	if e == nil || e.TheError == nil {
		return ""
	}
	return e.TheError.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.TheError
}

func NewError(url, method string, status int, body string, err error) *Error {
	return &Error{
		URL:      url,
		Method:   method,
		Status:   status,
		Body:     body,
		TheError: err,
	}
}
