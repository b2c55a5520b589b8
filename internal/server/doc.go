// Package server exposes the token-exchange proxy and a JSON API over the playlist library.
//
// # Router Infrastructure
//
// Routes are served by a chi router. [Middleware] wraps handlers in the standard Go pattern; the stack is request
// id, structured request logging, panic recovery and CORS.
//
// # Token Proxy
//
// GET /token exchanges the configured client credentials for a catalog access token and returns it as
// {access_token, token_type, expires_in}, so browser clients never see the client secret. Without credentials the
// endpoint answers 503; a failed upstream exchange answers 502.
//
// # Library API
//
// The /api routes call the [library.Store] directly. Library errors map to status codes:
//   - [shared.ErrValidation] : 400
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrDuplicate] : 409
//   - [shared.ErrPersistence] : 507
//   - [shared.ErrServiceUnavailable] : 503
//
// Error bodies are {"error": "<message>"}.
package server
