// Package imaging decodes photographed pill images and prepares the geometric
// variants the similarity search runs over.
//
// Decoding honours JPEG EXIF orientation and fails fast on unreadable bytes.
// Before feature extraction both images of a pair are letterboxed onto a fixed
// white square canvas so differing dimensions or aspect ratios never spuriously
// reduce similarity. Center crops simulate minor framing variance and quarter
// rotations simulate arbitrary photo orientation.
package imaging
