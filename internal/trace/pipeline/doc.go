// Package pipeline runs a whole session through the trace layers.
//
// Responsibilities: building the track map once per session, merging and
// annotating each driver's telemetry concurrently, slicing laps and
// summarising them for storage and reports.
// Key types: Session, Runner, Result, DriverResult, LapSummary.
//
// Dependency rule: pipeline may depend on L1-L5 and config.
// No SQL/database code is allowed in this package.
package pipeline
