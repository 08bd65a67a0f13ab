package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Storage types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeGCS   = "gcs"
)

// Location identifies a directory-like prefix in a storage backend.
//
// For object stores Bucket is the bucket name and Path the key prefix without
// leading or trailing slashes. For the local file system Bucket is an absolute
// directory and Path is relative to it.
type Location struct {
	Scheme string // Scheme as written by the user ("s3a", "gs", "file", ...).
	Type   string // Normalized storage type (TypeLocal, TypeS3, TypeGCS).
	Bucket string
	Path   string
}

// ParseLocation parses a URI such as "s3a://bucket/prefix", "gs://bucket/prefix",
// "file:///data/out" or a bare file system path.
func ParseLocation(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("empty storage location")
	}

	scheme, rest, hasScheme := strings.Cut(uri, "://")
	if !hasScheme {
		return localLocation("", uri)
	}

	switch strings.ToLower(scheme) {
	case "s3", "s3a", "s3n":
		return objectLocation(scheme, TypeS3, rest)
	case "gs", "gcs":
		return objectLocation(scheme, TypeGCS, rest)
	case "file":
		return localLocation(scheme, rest)
	default:
		return Location{}, fmt.Errorf("unsupported storage scheme '%s' in '%s'", scheme, uri)
	}
}

// MustParseLocation is like ParseLocation but panics on error. Intended for tests and constants.
func MustParseLocation(uri string) Location {
	loc, err := ParseLocation(uri)
	if err != nil {
		panic(err)
	}
	return loc
}

func objectLocation(scheme, typ, rest string) (Location, error) {
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("missing bucket in '%s://%s'", scheme, rest)
	}
	return Location{Scheme: scheme, Type: typ, Bucket: bucket, Path: cleanKey(prefix)}, nil
}

func localLocation(scheme, p string) (Location, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Location{}, fmt.Errorf("failed to resolve local path '%s': %w", p, err)
	}
	return Location{Scheme: scheme, Type: TypeLocal, Bucket: abs}, nil
}

// SharedRoot rewrites a and b onto one bucket so that a single connection
// addresses both. Local locations are rebased onto their deepest common
// directory. Object store locations must already share type and bucket.
// Nested locations are rejected.
func SharedRoot(a, b Location) (Location, Location, bool) {
	if a.Type != b.Type {
		return a, b, false
	}
	if a.Type != TypeLocal {
		if a.Bucket != b.Bucket {
			return a, b, false
		}
		return a, b, !keyWithin(a.Path, b.Path) && !keyWithin(b.Path, a.Path)
	}

	pa, pb := a.localPath(), b.localPath()
	if dirWithin(pa, pb) || dirWithin(pb, pa) {
		return a, b, false
	}
	root := filepath.Dir(pa)
	for !dirWithin(pb, root) {
		parent := filepath.Dir(root)
		if parent == root {
			break
		}
		root = parent
	}
	if !dirWithin(pb, root) {
		return a, b, false
	}
	return a.rebase(root), b.rebase(root), true
}

func (l Location) localPath() string {
	if l.Path == "" {
		return l.Bucket
	}
	return filepath.Join(l.Bucket, filepath.FromSlash(l.Path))
}

func (l Location) rebase(root string) Location {
	rel, err := filepath.Rel(root, l.localPath())
	if err != nil {
		return l
	}
	l.Bucket = root
	l.Path = ""
	if rel != "." {
		l.Path = cleanKey(filepath.ToSlash(rel))
	}
	return l
}

// dirWithin reports whether p is dir or below it.
func dirWithin(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// keyWithin reports whether key is prefix or below it.
func keyWithin(key, prefix string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/")
}

func cleanKey(key string) string {
	key = strings.Trim(key, "/")
	if key == "" {
		return ""
	}
	return path.Clean(key)
}

// Join returns a Location for a sub-path of l.
func (l Location) Join(elem ...string) Location {
	parts := append([]string{l.Path}, elem...)
	l.Path = cleanKey(path.Join(parts...))
	return l
}

// Key returns the object key of name inside l.
func (l Location) Key(name string) string {
	return cleanKey(path.Join(l.Path, name))
}

// Prefix returns l.Path with a trailing slash, suitable for listing the objects below l.
func (l Location) Prefix() string {
	if l.Path == "" {
		return ""
	}
	return l.Path + "/"
}

// Rel returns key relative to l. key must be below l.
func (l Location) Rel(key string) string {
	return strings.TrimPrefix(key, l.Prefix())
}

// String renders the Location back to a URI.
func (l Location) String() string {
	if l.Type == TypeLocal {
		p := l.Bucket
		if l.Path != "" {
			p = filepath.Join(l.Bucket, filepath.FromSlash(l.Path))
		}
		if l.Scheme == "" {
			return p
		}
		return l.Scheme + "://" + p
	}
	s := l.Scheme + "://" + l.Bucket
	if l.Path != "" {
		s += "/" + l.Path
	}
	return s
}
