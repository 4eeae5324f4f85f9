// Package sim provides the single-threaded discrete-event kernel.
//
// # Reading Guide
//
// Start with these files:
//   - event.go: Event and Message, the two kinds of scheduled work
//   - agent.go: the Agent contract and the Effects a handler returns
//   - world.go: the World loop (next batch, dispatch, schedule results)
//
// # Architecture
//
// Time is kept in integer ticks. Pending work is ordered by the hierarchical
// timing wheel in sim/clock, one wheel for events and one for local mail.
// Sub-packages build on the World:
//   - sim/clock/: hierarchical timing wheel with overflow heap
//   - sim/cluster/: planets and the clustered time-warp engine
//   - sim/trace/: optional dispatch log
//
// # Determinism
//
// A World run is a pure function of its configuration, its agents and the
// work scheduled before Run. Agents must not read wall-clock time or shared
// mutable state; per-agent randomness comes from Stream, which is a value and
// is copied with the agent on checkpoint.
package sim
