// Package ui implements the line-mode console using bubbletea's Elm architecture.
//
// A [Console] joins the server's hub as an in-process client, so every state change made from a
// websocket session shows up in the console and every console line is broadcast to the sessions.
// Lines are single-letter verbs parsed by [ParseLine]:
//
//	l <words>  search and load the first result
//	p          toggle play/pause of the loaded song
//	p <words>  search and play the first result
//	s <sec>    seek
//	n / b      next / previous
//	a <words>  search and queue the first result
//	q          quit the server
//
// The [Model] implements the standard Init/Update/View pattern, receiving console events via the Msg union type.
package ui
