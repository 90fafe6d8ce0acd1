package oncoannot

// DefaultOptions returns the recommended set of options for production use:
// panic recovery, request ids and access logging.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
		WithAccessLog(),
	}
}
