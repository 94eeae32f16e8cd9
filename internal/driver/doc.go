// Package driver minimizes a group output over bounded design variables
// subject to output constraints.
//
// The algorithm is a sequential constrained minimizer in the SQP family:
// each outer iteration evaluates the group, estimates gradients by forward
// differencing (one-sided at bounds), linearizes the constraints, and
// steps along a projected descent direction with a backtracking line
// search on an exact-penalty merit function. Infeasible iterates take a
// Gauss-Newton feasibility-restoration step first. Bounds are enforced by
// clipping before every evaluation, so no candidate ever leaves them.
//
// A run that exhausts MaxIter without a feasible optimum reports
// [mdo.OptimizationFailedError] carrying the best point seen; callers
// running trade studies record it and move on.
package driver
