package tool

import "errors"

// Result is the outcome of one tool execution. Output and Error are mutually
// informative rather than exclusive: a tool may produce partial output and
// still report a failure. Base64Image carries an attachment for multimodal
// follow-ups; System carries out-of-band text for the orchestrator rather
// than the model.
type Result struct {
	Output      string
	Error       string
	Base64Image string
	System      string
}

// Empty reports whether the result carries nothing at all.
func (r *Result) Empty() bool {
	return r == nil || (r.Output == "" && r.Error == "" && r.Base64Image == "" && r.System == "")
}

// String renders the result the way the step loop records it: failures win
// over output.
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	if r.Error != "" {
		return "Error: " + r.Error
	}
	return r.Output
}

// Combine merges two results by concatenating their text fields. At most one
// side may carry an attachment.
func (r *Result) Combine(other *Result) (*Result, error) {
	if other == nil {
		return r, nil
	}
	if r == nil {
		return other, nil
	}
	if r.Base64Image != "" && other.Base64Image != "" {
		return nil, errors.New("cannot combine results that both carry attachments")
	}
	combined := &Result{
		Output:      joinText(r.Output, other.Output),
		Error:       joinText(r.Error, other.Error),
		Base64Image: r.Base64Image,
		System:      joinText(r.System, other.System),
	}
	if combined.Base64Image == "" {
		combined.Base64Image = other.Base64Image
	}
	return combined, nil
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n" + b
}
