// Package diag defines the diagnostic model shared by the extraction and
// instrumentation pipelines.
//
// A Diagnostic names the function (and, when known, the block) it refers to,
// carries a Severity and a stable Code, and implements error so producers can
// aggregate findings with errors.Join and consumers can recover them with
// errors.As. Bag collects diagnostics for one driver run and keeps them in a
// deterministic order for printing.
//
// Structural problems found by ir.Validate are errors: analysis of the
// affected function stops, other functions are unaffected. Runtime logging
// problems are warnings and never stop the instrumented program.
package diag
