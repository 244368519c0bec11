package tool

// TruncateObservation caps a tool observation at max bytes, keeping the
// prefix. A non-positive max means unlimited.
func TruncateObservation(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
