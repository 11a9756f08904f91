// Package driver runs the branchlab pipelines over a whole module: loading
// Go packages, extracting features per function, instrumenting and running
// the result. Per-function failures are recorded as diagnostics and never
// stop the other functions.
package driver
