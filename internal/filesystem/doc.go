/*
Package filesystem guards every filesystem access that originates from the
picture root.

# Path Validation

Validator turns a client-supplied relative path into an absolute path inside
the configured root, or a *PathError. Validation happens before any read:

	v, _ := filesystem.NewValidator("/srv/pictures", extensions)
	abs, err := v.Validate("cats/1.jpg") // "/srv/pictures/cats/1.jpg"
	_, err = v.Validate("../../etc/passwd") // *PathError, reason "path traversal"

The path is URL-decoded up to three times, then rejected if it is empty,
contains a NUL byte, is absolute, contains a ".." segment (with either slash
style), lacks an allowed image extension, or resolves through a symlink to a
target outside the root.

# NFS Retry

StatWithRetry, LstatWithRetry, OpenWithRetry and ReadDirWithRetry wrap the os
calls with exponential backoff on ESTALE (stale file handle) errors, which
show up on NFS mounts while a directory is being edited server-side. All other
errors are returned immediately.

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

Defaults: 3 retries, 50ms initial backoff, 500ms cap.

# Metrics

Retry and rejection counts are reported through an Observer registered with
SetObserver. The metrics package supplies the implementation.
*/
package filesystem
