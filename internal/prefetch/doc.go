// Package prefetch folds the fetch requirements discovered while compiling a
// query into one minimal entity fetch.
//
// Filters, orderings and explicit requirements register what they need as
// they are evaluated. The Collector merges each registration into the
// accumulated set right away using the combination algebra of package query:
//
//	no combinable entry     insert
//	already covered         discard
//	otherwise               replace with the combination
//
// The snapshot is therefore independent of registration order for every kind
// that cannot conflict, up to the order of its children.
//
// A Collector belongs to one compilation pass and is not safe for concurrent
// use. Independent passes may run concurrently.
package prefetch
