package filer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options for minio filer
type Options struct {
	URL    string
	User   string
	Key    string
	Bucket string
	SSL    bool
}

// Filer saves and loads review files in minio
type Filer struct {
	client *minio.Client
	bucket string
	url    string
}

// NewFiler creates minio backed file storage
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	mc, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: mc, bucket: opts.Bucket,
		url: fmt.Sprintf("%s/%s", mc.EndpointURL().String(), opts.Bucket)}
	ctxInt, cf := context.WithTimeout(ctx, time.Second*10)
	defer cf()
	exists, err := mc.BucketExists(ctxInt, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctxInt, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket %s: %w", opts.Bucket, err)
		}
	}
	goapp.Log.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Msg("connected to minio")
	return res, nil
}

// SaveFile stores the file and returns its URL.
// The write is retried once on a transient failure
func (f *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	goapp.Log.Debug().Str("name", name).Int64("size", size).Msg("saving file")
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		_, err := f.client.PutObject(ctx, f.bucket, name, r, size,
			minio.PutObjectOptions{ContentType: contentType})
		return nil, goapp.IsRetryableErr(err), err
	}, saveBackoff())
	if err != nil {
		return "", fmt.Errorf("can't save %s: %w", name, err)
	}
	return fmt.Sprintf("%s/%s", f.url, name), nil
}

// LoadFile returns a reader for the stored file
func (f *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	goapp.Log.Debug().Str("name", name).Msg("loading file")
	obj, err := f.client.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't load %s: %w", name, err)
	}
	// GetObject is lazy, force the first call to surface not found errors
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("can't load %s: %w", name, err)
	}
	return &minioFile{Object: obj, info: info}, nil
}

type minioFile struct {
	*minio.Object
	info minio.ObjectInfo
}

func (f *minioFile) Stat() (fs.FileInfo, error) {
	return fileInfo{info: f.info}, nil
}

type fileInfo struct {
	info minio.ObjectInfo
}

func (f fileInfo) Name() string       { return path.Base(f.info.Key) }
func (f fileInfo) Size() int64        { return f.info.Size }
func (f fileInfo) Mode() fs.FileMode  { return 0 }
func (f fileInfo) ModTime() time.Time { return f.info.LastModified }
func (f fileInfo) IsDir() bool        { return false }
func (f fileInfo) Sys() interface{}   { return nil }

// DeleteFolder drops all files with the id prefix
func (f *Filer) DeleteFolder(ctx context.Context, id string) error {
	goapp.Log.Debug().Str("id", id).Msg("deleting files")
	prefix := strings.TrimSuffix(id, "/") + "/"
	objCh := f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for obj := range objCh {
		if obj.Err != nil {
			return fmt.Errorf("can't list %s: %w", prefix, obj.Err)
		}
		err := func() error {
			_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
				err := f.client.RemoveObject(ctx, f.bucket, obj.Key, minio.RemoveObjectOptions{})
				return nil, goapp.IsRetryableErr(err), err
			}, saveBackoff())
			return err
		}()
		if err != nil {
			return fmt.Errorf("can't delete %s: %w", obj.Key, err)
		}
	}
	return nil
}

// Clean implements the cleaner contract, drops files by review ID
func (f *Filer) Clean(ctx context.Context, id string) error {
	return f.DeleteFolder(ctx, id)
}

func saveBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 1)
}
