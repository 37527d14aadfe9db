// Package engine implements the transition and announcement engine.
//
// ARCHITECTURE:
//
// Single dispatch loop:
// One goroutine owns classification and primary transitions. A poller
// goroutine reads the telemetry source and feeds an inbox; control requests
// such as a manual jetway toggle enter the same inbox, so their order
// relative to telemetry is explicit.
//
// Processing flow:
//  1. Poller reads the next message and yields briefly
//  2. Run dequeues it and calls Step
//  3. Step classifies data records and applies one cabin transition under
//     the cabin lock
//  4. Resulting events are stamped by the logical clock and emitted
//  5. Jetway transitions start or cancel scheduled sequences
//
// Scheduled sequences (boarding music, doors announcement) run through a
// sequence.Scheduler. They emit through the same logical clock, so their
// events carry sequence numbers that interleave with the dispatch loop's.
//
// Error handling:
// Read errors and host exceptions are counted and logged at most once per
// interval. Malformed payloads and unknown tags are dropped. Nothing but a
// host quit or context cancellation stops the loop.
package engine
