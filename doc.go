/*
A tick synchronization barrier for go.

Metronome coordinates many worker goroutines against a single fixed cadence,
the way a frame loop coordinates the subsystems of a game or simulation. A
`Manager` runs one coordination loop at a configured `Speed` - a frames per
second target or a fixed interval - and workers participate through `Member`
proxies. Each member blocks in `WaitForTick` until every member due on the
current step has finished its cycle, at which point the whole due set is
released in lockstep.

A member's speed factor makes it due only on every k-th step, so slow
subsystems can run at a fraction of the master cadence without holding the
fast ones back. The `Hidden` state lets a member observe ticks without ever
blocking the barrier or being blocked by it.

All registry state is owned by the manager's loop; clients interact with it
only through a cheaply copyable `Handle`, so there are no locks to contend
on and any number of managers can coexist in one process. The manager also
composes with the ifrit process model: `NewRunner` exposes it as an
`ifrit.Runner`, and the `inspector` package provides runners for observing
a live barrier.
*/
package metronome
