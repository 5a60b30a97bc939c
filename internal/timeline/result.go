package timeline

// Outcome tags a WindowResult.
type Outcome int

const (
	// Classified means Label holds the window's top emotion.
	Classified Outcome = iota
	// Skipped means the window produced no label; Reason says why.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Classified:
		return "classified"
	case Skipped:
		return "skipped"
	default:
		return "invalid"
	}
}

// WindowResult is the classification outcome of a single window.
type WindowResult struct {
	Window  Window
	Outcome Outcome
	Label   string
	Reason  error
}

// ClassifiedResult builds a successful result.
func ClassifiedResult(w Window, label string) WindowResult {
	return WindowResult{Window: w, Outcome: Classified, Label: label}
}

// SkippedResult builds a result for a window that failed to classify.
func SkippedResult(w Window, reason error) WindowResult {
	return WindowResult{Window: w, Outcome: Skipped, Reason: reason}
}

// CountSkipped returns how many results carry no label.
func CountSkipped(results []WindowResult) int {
	n := 0
	for _, r := range results {
		if r.Outcome != Classified {
			n++
		}
	}
	return n
}
