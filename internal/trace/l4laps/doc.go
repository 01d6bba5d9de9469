// Package l4laps owns Layer 4 (Laps) of the telemetry data model.
//
// Responsibilities: lap boundaries derived from timing records, and
// slicing channel tables by time range, lap or set of laps with optional
// interpolated edge rows.
// Key types: Lap, SliceOptions.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5.
// No SQL/database code is allowed in this package.
package l4laps
