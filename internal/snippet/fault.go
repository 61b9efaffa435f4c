package snippet

import (
	"fmt"

	"graft/internal/diag"
)

// Fault is a construction-time failure: a defect in a template's authoring
// or in caller-supplied arguments. Faults abort specialization or
// instantiation immediately and are never retryable.
type Fault struct {
	Code     diag.Code
	Template string
	Param    string
	Msg      string
}

func (f *Fault) Error() string {
	loc := f.Template
	if f.Param != "" {
		loc += "." + f.Param
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Msg)
	}
	return fmt.Sprintf("%s %s: %s", f.Code, loc, f.Msg)
}

// Diagnostic converts the fault for reporting to a compiler driver.
func (f *Fault) Diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     f.Code,
		Message:  f.Msg,
		Template: f.Template,
		Param:    f.Param,
	}
}

func faultf(code diag.Code, template, param, format string, args ...any) *Fault {
	return &Fault{
		Code:     code,
		Template: template,
		Param:    param,
		Msg:      fmt.Sprintf(format, args...),
	}
}
