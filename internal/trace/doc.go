// Package trace is the root of the telemetry reconstruction layers.
//
// The layers are numbered from raw samples upwards:
//
//	l1samples  raw position/car samples, lap records, point cloud
//	l2track    ordered track loop and its distance profile
//	l3channels channel tables, merge and resample
//	l4laps     lap boundaries and slicing
//	l5distance distance, track status and gap annotation
//
// A layer may depend on lower layers only. The pipeline package wires
// them together for a whole session.
package trace
