// Package server provides the local HTTP callback used during sign-in.
//
// A [CallbackServer] listens on the configured callback address only while a login is in
// flight. Its [CallbackRouter] registers method patterns on an [http.ServeMux] and wraps
// them in [Middleware], the first added being the outermost.
//
// [OAuthHandler] receives the identity provider's redirect, checks the state parameter,
// exchanges the authorization code (passing any PKCE verifier options) and publishes a single
// [OAuthResult] on its result channel. Only the first callback is processed.
package server
