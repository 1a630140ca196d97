/*
Package runtime implements the supervisor state machine.

One call to Machine.Run handles one user turn:

	Idle → Routing → Dispatching → Evaluating → {Routing | Dispatching | Aggregating} → Done

with Error reachable from any state. A compound message is decomposed into
ordered sub-requests; each one is routed (oracle, then fallback matcher),
dispatched to exactly one worker, and evaluated. A worker may hand the
sub-request to another worker once. The number of dispatches per turn is
bounded, so a turn always terminates.

Dispatches within a turn are sequential. Callers serialise turns of the same
conversation (see session.Manager).
*/
package runtime
