// Package cascade chains pipeline stages: after a unit of work completes, a
// YAML-defined rule set decides whether to enqueue the next stage for the
// same basket. Rules gate on the completed stage's result and may delay the
// follow-on work's visibility.
package cascade
