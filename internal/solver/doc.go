// Package solver drives implicit groups to a consistent state.
//
// Two interchangeable strategies implement [graph.Solver]:
//
//   - [FixedPoint]: damped nonlinear Gauss-Seidel, the robust default
//   - [Newton]: residual linearization with a dense direct solve per step,
//     faster near the root
//
// Both surface non-convergence as [mdo.SolverDivergedError] carrying the
// last residual vector; nothing is retried silently.
package solver
