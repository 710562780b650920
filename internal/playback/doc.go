// Package playback owns the single logical player shared by every client.
//
// All mutations go through [Machine.Update], which holds one gate for the whole of the mutation and its commit hook,
// so at most one mutation is in flight and observers see state changes in the order they were applied.
//
// States:
//   - Idle: nothing loaded (State.Source is empty)
//   - Loaded, playing
//   - Loaded, paused
package playback
