// Package features computes the four pixel-level similarity measures the pair
// scorer blends: pixel difference, histogram overlap, edge-map difference, and
// perceptual hash. Every extractor is a pure function of its two inputs and
// returns a score in [0,1], higher meaning more similar.
package features
