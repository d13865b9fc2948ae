// Package planner runs the query compilation pass.
//
// A pass walks the filterBy and orderBy trees of a query to discover the
// entity data their evaluation needs, folds those needs together with the
// explicitly requested entityFetch through a prefetch collector, writes the
// result back into the require tree, prunes inapplicable directives and
// hashes the finalized query. The outcome is a Plan.
//
// Every pass is private to one goroutine. Passes never share collectors.
package planner
