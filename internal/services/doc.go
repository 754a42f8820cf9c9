// Package services holds the plumbing shared by the pipeline and its
// external integrations.
//
// It provides context helpers that stamp job identifiers, pipeline stage
// names and request correlation IDs for logging, plus the error markers and
// Wrap helper that classify failures consistently. Integrations with remote
// systems (the LLM client) live in subpackages.
package services
