// Package handlers exposes the image catalog over HTTP.
//
// It includes handlers for:
//   - Random images, as bytes (/random) or JSON (/api/random)
//   - Paginated category and image listings
//   - Image bytes, thumbnails and image metadata
//   - Catalog stats, scan history, manual rescans and the publish event stream
//   - Health checks and version information
//
// Random responses are never cacheable. Listings and image responses carry
// a long max-age and an ETag derived from the catalog generation, so a
// client revalidates with If-None-Match and gets 304 until the next publish.
package handlers
