// Package graph assembles analysis components into evaluable groups.
//
// A [Group] wires member outputs to member inputs through [Connection]s
// and exposes everything else as its external interface, qualified by
// member name. Construction validates every connection endpoint and
// computes the evaluation order with Kahn's algorithm; a cycle among
// members is a construction error unless the group is implicit, in which
// case the cycle-closing connections become feedback edges a [Solver]
// iterates on.
//
// Groups nest: a group is itself a component, and an implicit sub-group
// carrying its own solver looks explicit to its parent.
package graph
