package diag

// Reporter is the minimal contract for receiving diagnostics from engine
// phases. Implementations: BagReporter (collects into a Bag), NopReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes diagnostics into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards all diagnostics.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}
