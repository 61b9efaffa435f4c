package diag

// Severity ranks a diagnostic. Engine faults are SevError; advisories from
// warm-up and persistence paths use the lower levels.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for conditions worth surfacing that do not fail a build.
	SevWarning
	// SevError marks a construction-time fault.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
