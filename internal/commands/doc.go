// Package commands maps protocol command names to handlers.
//
// Commands come in three kinds:
//   - [Query] : reads only (search); runs concurrently and replies to the issuer
//   - [Mutation] : changes playback state under the playback gate and publishes one notification on success
//   - [Terminal] : ends the server (quit)
//
// Handlers never panic and never return bare errors to callers: [Registry.Execute] returns a tagged [Result] whose
// failure side is always a taxonomy entry from package protocol.
package commands
