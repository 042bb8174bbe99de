// Package cachepolicy decides how responses may be cached.
//
// Listings, image bytes and other derived payloads are cacheable for a long
// TTL and carry an ETag built from the catalog generation. Random draws are
// never cacheable. ResponseCache keeps rendered payloads in memory and treats
// any entry from an older generation as a miss.
package cachepolicy
