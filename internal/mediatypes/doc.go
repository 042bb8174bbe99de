// Package mediatypes holds the image format tables shared by the scanner, the
// path validator and the byte-serving handlers.
//
// It has no dependencies beyond the standard library so that any package can
// import it without creating cycles.
//
// # Extension Sets
//
// An ExtensionSet is the configured allow-list of image extensions. Matching
// is case-insensitive and ignores a leading dot in the configured values:
//
//	set := mediatypes.NewExtensionSet([]string{"jpg", ".PNG"})
//	set.Matches("cat.JPG") // true
//	set.Matches("cat.bmp") // false
//
// # MIME Types
//
// Use GetMimeType to pick a Content-Type for image responses:
//
//	mimeType := mediatypes.GetMimeType(".webp") // "image/webp"
package mediatypes
