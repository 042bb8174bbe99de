// Package media reads image metadata and renders thumbnails.
//
// ReadInfo decodes only the image header (JPEG, PNG, GIF and WebP are
// registered). The Thumbnailer resizes with imaging and encodes JPEG, with
// oversized sources scaled down before resizing.
package media
