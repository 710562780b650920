// Package protocol defines the wire format spoken between remote clients and the playback server.
//
// # Envelopes
//
// Every websocket text frame carries exactly one JSON [Envelope]; there is no batching.
//
// Clients send requests:
//
//	{"command": "play", "arguments": {"source": "dQw4w9WgXcQ", "song": "Never Gonna Give You Up"}}
//
// The server answers with a success envelope echoing the command and its arguments:
//
//	{"command": "play", "arguments": {...}, "results": {"success": "song ... is now playing"}}
//
// or a failure envelope drawn from the fixed [Error] taxonomy:
//
//	{"error": true, "code": "NO_SONG_PROVIDED", "message": "No song was provided"}
//
// Before shutting down the server pushes {"command": "quit"} to every client.
//
// # Errors
//
// [Error] values are static; handlers reference them (see [ErrNoQueryProvided], [ErrCommandNotFound], ...)
// instead of constructing new codes at runtime.
package protocol
