// Package composition corroborates visual matches with textual evidence: it
// tokenizes medicine identifiers, model-reported ingredients, and detected
// imprint text, then measures how much of the expected term set was actually
// observed. An empty expected set scores zero — missing composition data is
// never treated as a mismatch.
package composition
