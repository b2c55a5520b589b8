// Package services implements the collaborators the library depends on: a credential/token provider and a catalog
// search provider.
//
// # Token Providers
//
// All providers implement [TokenProvider]:
//   - [ClientCredentials] : exchanges the client id and secret for an app token with the OAuth2 client-credentials
//     grant, caching it until expiry
//   - [RemoteToken] : asks a running token proxy (GET /token) for a token, so the secret never leaves the proxy
//
// # Catalog
//
// [SpotifyCatalog] implements [Catalog] over the Spotify Web API. Requests are authorized with a bearer token from
// the configured [TokenProvider] and paced by a token-bucket limiter. Results are converted to
// [models.CatalogTrack], which maps onto the cached [models.Track] record.
//
// A missing token provider disables the catalog: [NewCatalog] returns nil and callers report
// [shared.ErrServiceUnavailable].
//
// # Error Handling
//
//   - [shared.ErrMissingCredentials] : client id or secret empty
//   - [shared.ErrAuthFailed] : token exchange rejected or returned no access token
//   - [shared.ErrAPIRequest] : catalog request failed
package services
