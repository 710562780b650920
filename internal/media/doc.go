// Package media wraps the audio engines the playback server can drive.
//
// [Engine] is the command surface the playback state machine depends on. Two implementations exist:
//   - [MPV] : spawns mpv in idle mode and speaks its JSON IPC protocol over a unix socket
//     (https://mpv.io/manual/stable/#json-ipc)
//   - [Memory] : records commands in process without producing audio, for tests and dry runs
//
// Engines are not safe for concurrent mutation; callers serialize access (see package playback).
package media
