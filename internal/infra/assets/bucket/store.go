// Package bucket adapts a portable gocloud.dev bucket URL to core.Store.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/memblob"  // mem:// URLs
	"gocloud.dev/gcerrors"

	"carbonatlas/internal/assets/core"
)

// Store wraps an opened *blob.Bucket.
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket identified by urlstr, e.g. "file:///srv/assets" or "mem://".
func Open(ctx context.Context, urlstr string) (*Store, error) {
	if urlstr == "" {
		return nil, fmt.Errorf("bucket url required")
	}
	b, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return &Store{bucket: b}, nil
}

// Close releases the bucket.
func (s *Store) Close() error { return s.bucket.Close() }

func (s *Store) Driver() core.Driver { return core.DriverBucket }

func wrapErr(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("asset %s: %w", key, core.ErrNotFound)
	}
	return err
}

func infoFromAttrs(key string, size int64, contentType, etag string, attrs *blob.Attributes) core.Info {
	info := core.Info{Key: key, Size: size, ContentType: contentType, ETag: etag}
	if attrs != nil {
		info.LastModified = attrs.ModTime.UTC()
	}
	if info.ContentType == "" {
		info.ContentType = core.ContentTypeFor(key)
	}
	return info
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return core.Info{}, nil, wrapErr(key, err)
	}
	info := core.Info{Key: key, Size: r.Size(), ContentType: r.ContentType(), LastModified: r.ModTime().UTC()}
	if info.ContentType == "" {
		info.ContentType = core.ContentTypeFor(key)
	}
	return info, r, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return core.Info{}, wrapErr(key, err)
	}
	return infoFromAttrs(key, attrs.Size, attrs.ContentType, attrs.ETag, attrs), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		info := core.Info{Key: obj.Key, Size: obj.Size, ContentType: core.ContentTypeFor(obj.Key), LastModified: obj.ModTime.UTC()}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	ct := opts.ContentType
	if ct == "" {
		ct = core.ContentTypeFor(key)
	}
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: ct})
	if err != nil {
		return core.Info{}, err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return core.Info{}, err
	}
	if err := w.Close(); err != nil {
		return core.Info{}, err
	}
	return s.Head(ctx, key)
}
