// Package l5distance owns Layer 5 (Distance) of the telemetry data model.
//
// Responsibilities: integrating speed into per-slice distance, relative
// distance, projecting samples and static markers onto a reconstructed
// track, and session-level annotations (track status, car ahead).
// Key types: Annotator, Marker.
//
// Dependency rule: L5 may depend on L1-L4.
// No SQL/database code is allowed in this package.
package l5distance
