// Package events defines the scenario events emitted on the event bus.
//
// Available event types:
//   - RunEvent: scenario run lifecycle (started, requirements, finished, failed)
//   - RequirementEvent: one requirement emitted by a value stream
//   - WindowEvent: outcome of one optimization sub-window
package events
