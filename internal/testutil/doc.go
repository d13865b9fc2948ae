// Package testutil provides deterministic id generators and clocks so that
// planner runs, stored plans and golden snapshots are reproducible.
package testutil
