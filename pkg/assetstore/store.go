package assetstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

// Error records a failed store operation.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return "assetstore: " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Store reads and writes assets in a bucket.
type Store struct {
	bucket *blob.Bucket
	// dir is the local root when the bucket is backed by the filesystem.
	dir string
	// root is the bucket URL without query parameters, if known.
	root string
}

// New wraps an already opened bucket. The store has object-store directory
// semantics; use [Open] or [OpenDir] for local directories.
func New(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// OpenDir opens a store rooted at a local directory, creating it if needed.
func OpenDir(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &Error{Op: "resolve", Key: dir, Err: err}
	}

	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, &Error{Op: "open", Key: abs, Err: err}
	}

	return &Store{bucket: bucket, dir: abs}, nil
}

// Open opens a store from a location, which is either a local path, a
// file:// URL, or any bucket URL registered with gocloud.dev/blob.
func Open(ctx context.Context, location string) (*Store, error) {
	if !strings.Contains(location, "://") {
		return OpenDir(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, &Error{Op: "parse", Key: location, Err: err}
	}
	if u.Scheme == "file" && u.RawQuery == "" {
		return OpenDir(filepath.FromSlash(u.Host + u.Path))
	}

	bucket, err := blob.OpenBucket(ctx, location)
	if err != nil {
		return nil, &Error{Op: "open", Key: location, Err: err}
	}
	s := New(bucket)
	s.root = u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/")
	return s, nil
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Local reports whether the store is backed by a local directory.
func (s *Store) Local() bool {
	return s.dir != ""
}

// Location returns a human-readable location for a key.
func (s *Store) Location(key string) string {
	if s.dir != "" {
		return filepath.Join(s.dir, filepath.FromSlash(key))
	}
	if s.root != "" {
		return s.root + "/" + key
	}
	return key
}

// Exists reports whether an object exists at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, &Error{Op: "stat", Key: key, Err: err}
	}
	return ok, nil
}

// Read returns the full contents of the object at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, &Error{Op: "read", Key: key, Err: err}
	}
	return data, nil
}

// Write stores data at key, replacing any existing object.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return &Error{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Delete removes the object at key. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil && !IsNotExist(err) {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// DirExists reports whether the directory named by prefix exists.
func (s *Store) DirExists(ctx context.Context, prefix string) (bool, error) {
	if s.dir != "" {
		info, err := os.Stat(s.dirPath(prefix))
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, &Error{Op: "stat", Key: prefix, Err: err}
		}
		return info.IsDir(), nil
	}

	iter := s.bucket.List(&blob.ListOptions{Prefix: dirPrefix(prefix)})
	_, err := iter.Next(ctx)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, &Error{Op: "list", Key: prefix, Err: err}
	}
	return true, nil
}

// MakeDir creates the directory named by prefix on local stores.
func (s *Store) MakeDir(ctx context.Context, prefix string) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dirPath(prefix), 0o755); err != nil {
		return &Error{Op: "mkdir", Key: prefix, Err: err}
	}
	return nil
}

// RemoveAll deletes the directory named by prefix and everything under it.
// It returns the first error encountered but keeps deleting past failures.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	if s.dir != "" {
		if err := os.RemoveAll(s.dirPath(prefix)); err != nil {
			return &Error{Op: "remove", Key: prefix, Err: err}
		}
		return nil
	}

	var firstErr error
	iter := s.bucket.List(&blob.ListOptions{Prefix: dirPrefix(prefix)})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return &Error{Op: "list", Key: prefix, Err: err}
		}
		if obj.IsDir {
			continue
		}
		if err := s.Delete(ctx, obj.Key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Keys lists the object keys under prefix in lexical order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: dirPrefix(prefix)})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, &Error{Op: "list", Key: prefix, Err: err}
		}
		if !obj.IsDir {
			keys = append(keys, obj.Key)
		}
	}
}

func (s *Store) dirPath(prefix string) string {
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
}

func dirPrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// IsNotExist reports whether err means the object does not exist.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
