// Package mdo defines the data model shared by the analysis graph, the
// residual solver and the optimization driver.
//
// Components come in two kinds implementing one common interface:
//
//   - [Explicit]: outputs computed directly from inputs
//   - [Implicit]: outputs defined by residual equations a solver drives
//     to zero
//
// Values flow between components as named scalars ([Values]); design
// variables and exogenous parameters live in a per-run [Scope] so that
// concurrent sweep points never share mutable state.
//
// Components that know their partial derivatives implement [Linearizer];
// everything else is differenced numerically with [FDStep].
package mdo
