// Package engine drives analysis records through their workflow.
//
// State machine:
//
//	Processing --(backend ok)-----> Completed (artifacts attached)
//	Processing --(backend error)--> Failed    (no artifacts)
//
// Completed and Failed are terminal. There are no retries: a failed
// analysis is re-run by submitting the payload again, which creates a new
// record.
//
// Each Advance runs in the caller's goroutine: fetch, authorize, compute,
// persist. The persist step re-checks that the record is still Processing,
// but the ledger offers no compare-and-swap, so two concurrent Advance
// calls on the same record can both run the backend and the last write
// wins. Deployments that need exactly-once processing route all Advance
// calls for a ledger through one worker (AdvanceAll is that worker's loop).
package engine
