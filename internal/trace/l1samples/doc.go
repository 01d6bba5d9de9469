// Package l1samples owns Layer 1 (Samples) of the telemetry data model.
//
// Responsibilities: raw position and car samples as delivered by the
// timing feed, lap records, track status events, and the de-duplicated
// point cloud of on-track positions used to reconstruct the circuit.
// Key types: PositionSample, CarSample, LapRecord, TrackPoint, PointCloud.
//
// Dependency rule: L1 depends on no other trace layer.
// No SQL/database code is allowed in this package.
package l1samples
