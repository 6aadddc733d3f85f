package server

// ErrorMessage exposes errorMessage for testing.
func ErrorMessage(err error) string {
	return errorMessage(err)
}
