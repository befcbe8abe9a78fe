package render

// RenderError reports an encoder or output failure. Typically a resource
// or permissions issue: surfaced to the caller, never retried.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return "render " + e.Stage + ": " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
