// Package language normalizes language codes for jobs, prompts and the
// translation memory.
//
// Codes may arrive as ISO 639-1, ISO 639-2, English words or BCP 47 tags
// with a region ("es-MX"); everything is reduced to the two-letter base code
// so memory keys and per-language lexicons agree.
package language
