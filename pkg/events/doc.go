/*
Package events provides an in-memory event broker plus the engine's
batch-boundary progress channel.

Broker is topic-agnostic, non-blocking pub/sub: Publish never blocks on a
slow subscriber, it drops for that subscriber instead. Long-running
operations (currently the engine's RelateMany) push Progress values at
batch boundaries only, never per-item, per the cooperative scheduling
model.
*/
package events
