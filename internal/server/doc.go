// Package server provides the websocket control surface: HTTP routing and middleware, sessions, the broadcast hub,
// and the dispatcher that turns frames into commands.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Sessions
//
// Each websocket connection gets a [Session] with a read pump and a write pump. The read pump handles frames
// sequentially so one connection's commands execute in the order sent; the write pump owns every write to the
// connection.
//
// # Hub
//
// [Hub] holds the live sessions. A broadcast is encoded once and enqueued to every session without blocking; a
// session whose queue is full or closed is dropped and the rest still receive the frame.
//
// # Dispatch
//
// [Dispatcher] decodes a frame, resolves the command and executes it:
//   - queries reply to the issuer
//   - successful mutations are broadcast to every live session, the issuer included, exactly once
//   - failures are reported to the issuer only
//   - quit broadcasts {"command":"quit"} and stops the server; later frames get SHUTTING_DOWN
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [HealthHandler] serves /healthz this way.
package server
