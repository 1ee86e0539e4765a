// Package events defines the simulator events emitted on the event bus.
//
// Available event types:
//   - TickEvent: summary of a completed tick
//   - SupplyFailureEvent: the generation estimator could not be reached
//   - CommandEvent: a configuration edit was applied
//   - AlertEvent: an advisory alert was raised
package events
