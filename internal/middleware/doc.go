// Package middleware provides the HTTP middleware chain for the image
// service: W3C extended access logging, Prometheus request metrics labelled
// by route template, and gzip compression of JSON listings.
package middleware
