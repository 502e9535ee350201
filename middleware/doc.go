// Package middleware adapts the engine to net/http. Two composable layers:
//
//   - [Resolve] extracts and verifies the bearer token, attaching a
//     SecurityContext to the request. It never rejects.
//   - [Protect] evaluates the rule table and rejects with a structured JSON
//     body when the request is not permitted.
//
// Handlers downstream of Resolve can read the caller with
// [CurrentIdentity]. Compose the layers with [Chain]:
//
//	handler := middleware.Chain(mux, middleware.Resolve(engine), middleware.Protect(engine))
package middleware
