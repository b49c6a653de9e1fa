// Package harness runs YAML workflow scenarios against a fresh in-memory
// ledger.
//
// A scenario is a list of steps (submit, advance, drop, corrupt) with the
// compute outcome each advance should see and the result each step should
// produce. Record ids are deterministic (rec-0001, rec-0002, ...) and the
// clock starts at 1700000000 and ticks one second per submit unless a step
// pins created_at, so scenarios can refer to records by id and golden files
// are stable.
//
// Example scenario:
//
//	name: advance-once
//	description: owner advances a record to Completed
//	steps:
//	  - action: submit
//	    caller: "0xA"
//	    payload: P
//	  - action: advance
//	    caller: "0xA"
//	    record: rec-0001
//	    compute:
//	      artifacts: [d1, d2]
//	    expect:
//	      status: Completed
//	listing:
//	  - id: rec-0001
//	    status: Completed
//
// Usage:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/advance.yaml")
//	result, err := harness.Run(ctx, scenario)
package harness
