// Package fixes proposes ranked, explainable repairs for a single cue.
//
// Every generated option is built from the cue's current state and then
// re-validated by running its preview back through the qc evaluator. An
// option is applicable only when it clears at least one of the issues it
// targets and introduces no issue type the cue did not already have. The
// manual option is always present and never ranked.
package fixes
