// Package models provides the tube-transport analysis units.
//
// Each unit implements [mdo.Explicit] or [mdo.Implicit] and is assembled
// by [BuildTubeGroup] into the coupled system the optimizer drives:
//
//   - [PodMach]: tube flow area from the pod Mach number
//   - [VacuumPump]: pump power holding tube pressure against leakage
//   - [TubeWallTemp]: implicit wall temperature balance
//   - [Propulsion]: cruise drag power at tube conditions
//   - [TubeStructural]: shell stress, mass and deflection between pylons
//   - [PylonSpacing]: buckling limit on support spacing
//   - [TubePower], [TubeCost]: power and cost rollups
package models
