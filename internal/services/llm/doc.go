// Package llm provides an OpenAI-compatible chat completions client that
// asks for JSON-only answers.
//
// The translate package builds subtitle prompts on top of CompleteJSON;
// preflight uses HealthCheck to confirm the key and model are usable before
// the service accepts jobs.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title and
// timeout_seconds. The default endpoint is OpenRouter; any server that speaks
// the chat completions schema works.
//
// # Retry Behaviour
//
// RetryPolicy governs repeats of HTTP 408/429/5xx errors, empty completions
// and network timeouts. DefaultRetryPolicy backs off from 1s to 10s over up
// to 5 attempts; preflight uses NoRetry. Retry-After is honoured up to the
// policy's MaxDelay, and context cancellation aborts retries immediately.
//
// Usage accumulates prompt and completion token counts reported by the
// server so the translate stage can log what a job cost.
//
// # Response Quirks
//
// Providers disagree on where the answer lives. Content is read from the
// message, a streaming-style delta, the legacy text field, or function and
// tool call arguments, in that order. DecodeLLMJSON strips code fences and
// surrounding prose before decoding.
package llm
