// Package l3channels owns Layer 3 (Channels) of the telemetry data model.
//
// Responsibilities: the immutable columnar channel table, the channel
// schema that classifies each channel as continuous or discrete, and the
// merge/resample engine that aligns differently sampled streams onto one
// time base.
// Key types: Table, Schema, Metadata, Frequency.
//
// Dependency rule: L3 may depend on L1, but never on L2 or L4-L5.
// No SQL/database code is allowed in this package.
package l3channels
