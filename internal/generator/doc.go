// Package generator provides the pluggable scene generation backends behind
// the narrate and annotate stages.
//
// # Backends
//
// Three backends implement Generator: gemini (Gemini API, deck sent inline
// with a JSON response schema), openrouter (chat completions, deck sent as a
// base64 file attachment), and mock (deterministic offline output for tests).
// New selects one from Settings.Backend.
//
// # Wire Contract
//
// Narrate asks for {"scenes": [{"comment", "speech"}, ...]}, one scene per
// slide in deck order. Annotate asks for {"scenes": [{"markup"}, ...]} with
// exactly one entry per input speech, matched positionally. Both shapes are
// decoded with DecodeModelJSON, which tolerates code fences and prose around
// the JSON payload.
//
// # Retry Behaviour
//
// The OpenRouter backend retries HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default);
// Retry-After headers are honored. Context cancellation aborts retries
// immediately. The Gemini backend performs single attempts and leaves
// retrying to the caller.
//
// # Fallback
//
// Errors from a backend are returned raw; the stages wrap them into the
// pipeline error taxonomy, where generation failures are retryable.
package generator
