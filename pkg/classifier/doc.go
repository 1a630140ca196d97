/*
Package classifier turns a sub-request into a routing decision.

Two stages are provided:

  - OracleClassifier asks an external oracle (an LLM) to pick one worker among
    the candidates, and validates the raw answer against the candidate names.
  - FallbackMatcher is a deterministic keyword rule table used whenever the
    oracle is unavailable, errors, or answers with something unusable.

The fallback always yields a worker: when no rule matches, it answers with its
catch-all worker.
*/
package classifier
