// Package gender detects grammatical-gender agreement in translated subtitle
// text and produces masculine, feminine and optionally neutral renderings.
//
// Detection is lexical: each supported language carries a table of word
// pairs whose form depends on the speaker's or addressee's gender. The
// English source text, when available, is scanned for pronouns and nouns that
// settle the question; without such evidence the guess defaults to the form
// the translation already uses at low confidence.
package gender
