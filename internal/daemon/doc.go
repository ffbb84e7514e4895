// Package daemon owns the loomd process lifecycle: it enforces
// single-instance execution with a file lock, supervises the pipeline
// workers, and reports runtime status for operators.
package daemon
