// Package imagegen talks to an OpenAI-compatible image generation endpoint.
//
// A Client issues one generation request per call and fetches the resulting
// artifact, which the provider returns either as a short-lived URL or inline as
// base64. Retry policy belongs to the caller; every network or non-2xx failure
// is tagged with services.ErrTransient so callers can decide.
package imagegen
