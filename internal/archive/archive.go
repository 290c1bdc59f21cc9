// Package archive keeps a compressed copy of every imported file in a
// gocloud.dev blob bucket, so an import can be audited or re-run later.
//
// Bucket URLs select the driver: file:///var/lib/importer/archive,
// mem://, s3://bucket?region=eu-west-2 or gs://bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file://
	_ "gocloud.dev/blob/gcsblob"  // gs://
	_ "gocloud.dev/blob/memblob"  // mem://
	_ "gocloud.dev/blob/s3blob"   // s3://
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("archive: not found")

const suffix = ".zst"

// Store writes and reads zstd-compressed uploads.
type Store struct {
	bucket *blob.Bucket
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// Open opens the bucket at bucketURL.
func Open(ctx context.Context, bucketURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket: %w", err)
	}
	return newStore(bucket)
}

func newStore(bucket *blob.Bucket) (*Store, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = bucket.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = bucket.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Store{bucket: bucket, enc: enc, dec: dec}, nil
}

// Key is the object key for an import's file:
// imports/YYYY/MM/DD/<importID>/<file name>.zst
func Key(importID, fileName string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join("imports", at.UTC().Format("2006/01/02"), importID, name) + suffix
}

// Put compresses content and stores it under key.
func (s *Store) Put(ctx context.Context, key string, content []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/zstd"}
	if err := s.bucket.WriteAll(ctx, key, s.enc.EncodeAll(content, nil), opts); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Get returns the decompressed content stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return out, nil
}

// Close releases the codecs and the bucket.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.bucket.Close()
}
