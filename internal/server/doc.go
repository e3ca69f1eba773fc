// Package server provides the HTTP API the web app and the remote bot talk to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Routes
//
//   - POST /auth : extracts (and optionally verifies) the user id from signed web app data
//   - POST /playlists : materialized playlists of a user
//   - POST /create_playlist, POST /delete_playlist : playlist mutations
//   - POST /add_track : multipart audio upload, handed to Track Ingest
//   - GET /healthz, GET / and /static/ : liveness and static web app files
//
// # Errors
//
// Handlers return sentinel errors from the shared package and [WriteError] maps them to status codes:
// invalid input 400, unauthorized 403, not found 404, upstream 502 and everything else 500.
// Bodies are JSON objects of the form {"error": "...", "details": "..."}.
package server
