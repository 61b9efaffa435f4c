package diag

import (
	"fmt"
)

// Note attaches supplementary detail to a diagnostic.
type Note struct {
	Msg string
}

// Diagnostic is one engine fault or advisory. Template and Param locate the
// fault in the snippet catalog; Param may be empty.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Template string
	Param    string
	Notes    []Note
}

func (d Diagnostic) String() string {
	loc := d.Template
	if d.Param != "" {
		loc += "." + d.Param
	}
	if loc == "" {
		loc = "<engine>"
	}
	return fmt.Sprintf("%s %s %s: %s", d.Severity, d.Code, loc, d.Message)
}

// WithNote returns a copy of the diagnostic with an extra note appended.
func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Msg: msg})
	return d
}
