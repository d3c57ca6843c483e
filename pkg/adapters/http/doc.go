// Package http exposes hosts over HTTP and fetches application assets from an origin.
//
// NewHandler serves the shell API, one host per session:
//
//	POST   /sessions                create a session at the start URL
//	GET    /sessions/{id}           current URL, history and mounted application
//	DELETE /sessions/{id}           forget the session and its snapshot
//	POST   /sessions/{id}/navigate  {"url": "..."}
//	POST   /sessions/{id}/back
//	GET    /sessions/{id}/document  the live document as HTML
//
// Indexes and Scripts implement the loader ports against an HTTP origin.
package http
