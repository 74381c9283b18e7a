package io

import (
	"context"
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"studio-portrait/internal/core"
)

const objectScheme = "s3://"

// ObjectLocation is a parsed s3://bucket/key handle
type ObjectLocation struct {
	Bucket string
	Key    string
}

func IsObjectURL(handle string) bool {
	return strings.HasPrefix(handle, objectScheme)
}

func ParseObjectURL(handle string) (ObjectLocation, error) {
	if !IsObjectURL(handle) {
		return ObjectLocation{}, fmt.Errorf("not an object url: %s", handle)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(handle, objectScheme), "/")
	if !ok || bucket == "" || key == "" {
		return ObjectLocation{}, fmt.Errorf("object url needs a bucket and a key: %s", handle)
	}
	return ObjectLocation{Bucket: bucket, Key: key}, nil
}

// Router dispatches handles to object storage or the local filesystem
type Router struct {
	files   *FileStore
	objects *S3Store
}

// NewRouter builds a router. objects may be nil when no bucket storage is configured.
func NewRouter(files *FileStore, objects *S3Store) *Router {
	return &Router{files: files, objects: objects}
}

func (r *Router) Load(ctx context.Context, handle string) (gocv.Mat, error) {
	if IsObjectURL(handle) {
		if r.objects == nil {
			return gocv.NewMat(), fmt.Errorf("%w: object storage not configured for %s", core.ErrFatalLoad, handle)
		}
		return r.objects.Load(ctx, handle)
	}
	return r.files.Load(ctx, handle)
}

func (r *Router) Save(ctx context.Context, handle string, mat gocv.Mat) error {
	if IsObjectURL(handle) {
		if r.objects == nil {
			return fmt.Errorf("object storage not configured for %s", handle)
		}
		return r.objects.Save(ctx, handle, mat)
	}
	return r.files.Save(ctx, handle, mat)
}
