// Package translate fills in cue translations for the pipeline.
//
// A Translator walks the cues in batches, offering each batch to a Provider
// together with the previously translated cues as context. Lines already in
// the translation memory are reused without calling the provider. After
// translation the glossary is enforced: a source term that survived
// untranslated is replaced by its fixed translation, and every glossary
// translation present in the cue becomes a protected term that later fixes
// must keep verbatim.
//
// Providers:
//   - MockProvider prefixes the source with the upper-cased target language
//     ("[ES] Hello") for dry runs and tests.
//   - LLMProvider asks a chat completions model for JSON translations through
//     internal/services/llm.
package translate
