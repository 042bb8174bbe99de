package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"random-pictures/internal/mediatypes"
)

// maxUnescapeRounds bounds how many extra times a client path is
// URL-decoded for the rejection checks, so that double or triple encoded
// traversal sequences are caught. The file itself is always resolved from
// the path as received.
const maxUnescapeRounds = 3

// Reasons reported in PathError.
const (
	ReasonEmpty     = "empty path"
	ReasonNullByte  = "null byte"
	ReasonAbsolute  = "absolute path"
	ReasonTraversal = "path traversal"
	ReasonExtension = "unsupported extension"
	ReasonOutside   = "outside root"
	ReasonSymlink   = "symlink escapes root"
)

// ErrInvalidPath is matched by every PathError via errors.Is.
var ErrInvalidPath = errors.New("invalid path")

// PathError reports a client-supplied path that failed validation. It is
// returned before any filesystem read is attempted on that path.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidPath) match any PathError.
func (e *PathError) Is(target error) bool {
	return target == ErrInvalidPath
}

// Validator resolves client-supplied relative paths against a root directory.
type Validator struct {
	root       string
	realRoot   string
	extensions mediatypes.ExtensionSet
}

// NewValidator creates a Validator for root. Paths must carry one of the
// given extensions to be accepted.
func NewValidator(root string, extensions mediatypes.ExtensionSet) (*Validator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	realRoot := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		realRoot = resolved
	}

	return &Validator{
		root:       abs,
		realRoot:   realRoot,
		extensions: extensions,
	}, nil
}

// Root returns the absolute root directory.
func (v *Validator) Root() string {
	return v.root
}

// Validate normalizes rel and returns the absolute path it names inside the
// root. The file does not need to exist; if it does and it is a symlink, its
// target must also be inside the root.
func (v *Validator) Validate(rel string) (string, error) {
	cleaned, err := v.normalize(rel)
	if err != nil {
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			observeRejected(pathErr.Reason)
		}
		return "", err
	}
	return cleaned, nil
}

func (v *Validator) normalize(rel string) (string, error) {
	reject := func(reason string) error {
		return &PathError{Path: rel, Reason: reason}
	}

	if strings.TrimSpace(rel) == "" {
		return "", reject(ReasonEmpty)
	}
	for _, form := range append([]string{rel}, decodings(rel)...) {
		if reason := checkForm(form); reason != "" {
			return "", reject(reason)
		}
	}

	clean := path.Clean(strings.ReplaceAll(rel, `\`, "/"))
	if clean == "." {
		return "", reject(ReasonEmpty)
	}
	if !v.extensions.Matches(clean) {
		return "", reject(ReasonExtension)
	}

	full := filepath.Join(v.root, filepath.FromSlash(clean))
	if !isWithin(v.root, full) {
		return "", reject(ReasonOutside)
	}

	if _, err := os.Lstat(full); err == nil {
		resolved, err := filepath.EvalSymlinks(full)
		if err != nil || !isWithin(v.realRoot, resolved) {
			return "", reject(ReasonSymlink)
		}
	}

	return full, nil
}

// decodings returns up to maxUnescapeRounds successive URL decodings of p.
// A literal '%' is valid in a file name, so malformed escapes are kept as
// they are rather than ending the decoding.
func decodings(p string) []string {
	var out []string
	for i := 0; i < maxUnescapeRounds; i++ {
		next := unescapeLenient(p)
		if next == p {
			break
		}
		out = append(out, next)
		p = next
	}
	return out
}

// unescapeLenient decodes every well-formed %XX sequence in s. url.PathUnescape
// rejects the whole string on the first malformed one.
func unescapeLenient(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// checkForm returns the rejection reason for p, or "" if p is acceptable.
func checkForm(p string) string {
	if strings.ContainsRune(p, '\x00') {
		return ReasonNullByte
	}
	slashed := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.VolumeName(p) != "" {
		return ReasonAbsolute
	}
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return ReasonTraversal
		}
	}
	return ""
}

// isWithin reports whether target is root or a descendant of it.
func isWithin(root, target string) bool {
	relative, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if relative == "." {
		return true
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}
