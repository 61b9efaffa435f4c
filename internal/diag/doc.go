// Package diag carries diagnostics produced by the snippet engine.
//
// Every failure in the engine is a construction-time fault: a defect in a
// template's authoring or in caller-supplied arguments, never a transient
// runtime condition. Diagnostics locate faults by template and parameter
// name rather than by source position.
package diag
