// Package visual resolves the perceptual similarity of a reference/test image
// pair by searching a crop×rotation variant space and keeping the best blended
// feature score. Byte-identical inputs short-circuit to a perfect score.
package visual
