// Package textfit reshapes subtitle text to fit layout and reading-speed
// limits: optimal line wrapping, natural split points and heuristic
// condensation.
//
// Every function treats protected terms (glossary substitutions) as atomic:
// they are never broken across lines, split between cues or removed.
package textfit
