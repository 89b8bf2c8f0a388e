package tools

// Status classifies the outcome of one tool execution. Execution never
// surfaces a hard error to the turn: every outcome carries text the
// model can react to in character, and the status exists so callers and
// tests can distinguish a real answer from a fallback deterministically.
type Status int

const (
	// StatusOK means the tool produced a real answer.
	StatusOK Status = iota
	// StatusDegraded means the tool could not answer (unknown tool,
	// bad arguments, cache miss) and Text holds a fallback the model
	// can work with.
	StatusDegraded
	// StatusFatal means the tool's backing lookup failed outright.
	// Err holds the cause for logging; Text still holds a fallback.
	StatusFatal
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one tool execution. Text is always non-empty.
type Result struct {
	Status Status
	Text   string
	Err    error // set only for StatusFatal
}

// OK wraps a successful result.
func OK(text string) Result {
	return Result{Status: StatusOK, Text: text}
}

// Degraded wraps a fallback result.
func Degraded(text string) Result {
	return Result{Status: StatusDegraded, Text: text}
}

// Fatal wraps a failed lookup. The fallback text is what the model
// sees; err is for the logs.
func Fatal(text string, err error) Result {
	return Result{Status: StatusFatal, Text: text, Err: err}
}
