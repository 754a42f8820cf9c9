// Package preflight provides readiness checks for the filesystem paths and
// external services subconform depends on.
//
// These checks run in two contexts:
//   - "subconform serve" calls RunAll before starting the daemon and refuses
//     to start when a required check fails.
//   - The CLI "subconform status" command renders every Result as a table row.
//
// Each check is gated by its config toggle -- the LLM check only runs when
// translation.provider is "llm", the glossary check only when a glossary
// path is configured.
package preflight
