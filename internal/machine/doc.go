// Package machine holds the tripwire controller's state and the ingestion
// loop that keeps it current.
//
// The controller prints one status message per line on its serial console.
// ParseLine turns a line into at most one Mutation, and Bridge applies
// mutations to a single MachineState record under one mutex. HTTP handlers
// read the record through Bridge.Snapshot and never touch the serial link.
package machine
