// Package request exposes a finalized query as the read-only view the
// execution engine consumes: which entity data to fetch, which locales and
// prices apply, how results are paginated and how facets relate.
//
// All derivations happen once in New. A Request is immutable and safe for
// concurrent use.
package request
