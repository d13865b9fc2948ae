// Package harness runs planning scenarios: YAML files that compile named
// CUE queries through the planner and check the finalized plans.
//
// # Scenario Format
//
//	name: merge_filter_needs
//	description: "Filter attributes merge into the explicit fetch"
//	specs:
//	  - queries/products.cue
//	steps:
//	  - compile: byCode
//	    expect:
//	      require: "require(entityFetch(attributeContent('code','name')))"
//	      stats: { registered: 2, inserted: 1, discarded: 1, combined: 0 }
//	  - compile: broken
//	    expect:
//	      error: conflicting
//	assertions:
//	  - type: same_plan
//	    queries: [byCode, byCodeAgain]
//	  - type: plan_count
//	    count: 1
//
// Spec paths are relative to the scenario file. Scenarios are decoded with
// unknown fields rejected and then checked with struct tag rules.
//
// # Assertion Types
//
//   - same_plan: the named queries compiled to one plan
//   - distinct_plans: no two named queries share a plan
//   - plan_count: the run's plan store holds exactly count plans
//   - prefetch_contains: the query's merged fetch lists the content directive
//
// # Deterministic Runs
//
// Every run uses a fresh in-memory plan store, a step clock and sequential
// pass ids. Trace events name plans by label (p1, p2, ...) in order of
// first appearance, so golden snapshots under testdata/golden are stable.
package harness
