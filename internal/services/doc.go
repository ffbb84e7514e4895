// Package services defines cross-cutting helpers shared by the pipeline
// stages: the error classification markers with Wrap, and context annotation
// helpers used for log correlation.
package services
