// Package l2track owns Layer 2 (Track) of the telemetry data model.
//
// Responsibilities: ordering the unique on-track positions into a loop
// approximating the circuit (greedy nearest-neighbour tour with outlier
// rejection), integrating the per-point distance profile, and answering
// spatial queries against the finished loop.
// Key types: OrderedTrack, TourConfig, TourStats.
//
// Dependency rule: L2 may depend on L1, but never on L3-L5.
// No SQL/database code is allowed in this package.
package l2track
