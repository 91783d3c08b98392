package sse

// ServerError is an application-level failure reported by the server, either
// as an error envelope inside a 200 OK stream or as a JSON error body where
// an event stream was expected.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server returned an error"
	}
	return e.Message
}
