package port

import "context"

// ObjectStore abstracts object storage get/put. Get returns an error wrapping
// models.ErrObjectNotFound when the key does not exist.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}
