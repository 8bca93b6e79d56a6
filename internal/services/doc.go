// Package services implements the client for the String Scribe transcription backend.
//
// # Endpoints
//
//   - POST {base}/api/v1/upload : multipart field "file"
//   - POST {base}/api/v1/upload-youtube : multipart fields "url" and "user_id"
//   - POST {base}/api/v1/create-checkout-session : form field "id", answered with a redirect
//
// Upload requests carry the entitlement header (X-Scribe-Pro by default) and, when signed in, the
// identity provider access token. The backend is the authoritative enforcement point for entitlement
// and quota; the client only forwards what it knows.
//
// # Error Handling
//
// Status codes are mapped to sentinels from the shared package:
//   - 429 : [shared.ErrQuotaExceeded]
//   - 403 : [shared.ErrPremiumRequired]
//   - other non-2xx : [shared.ErrAPIRequest], see [StatusError]
//   - transport failures : [shared.ErrServiceUnavailable]
//
// # Pacing
//
// Requests are paced client-side with a token bucket limiter so a script looping over files cannot
// burn through the free quota in a burst.
package services
