// Package catalog models the image catalog: categories found directly under
// the image root, the images inside them, and the immutable snapshots that
// request handlers read.
//
// A Scanner builds a Snapshot from disk. An Index publishes it atomically,
// assigning a strictly increasing generation number. Readers call
// Index.Current and keep using the returned snapshot for the whole request,
// so a concurrent publish never exposes a half-built view.
package catalog
