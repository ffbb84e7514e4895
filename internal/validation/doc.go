// Package validation scores proposed substrate mutations before governance
// review. It detects duplicates and near-duplicates against an advisory
// snapshot, assigns per-operation confidence, and always produces a report:
// internal failures degrade to a conservative safe-default verdict rather
// than blocking the pipeline.
package validation
