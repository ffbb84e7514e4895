// Package proposal implements governed change control for the substrate.
// Every mutation travels as a proposal: an ordered batch of operations that
// waits in PROPOSED status for review, is APPROVED or REJECTED, and on
// approval is executed exactly once against the substrate.
package proposal
