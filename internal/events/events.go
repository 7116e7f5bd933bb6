package events

import (
	"context"
	"strings"
)

// Storage providers that raise finalize events.
const (
	ProviderGCS   = "gcs"
	ProviderS3    = "s3"
	ProviderMinio = "minio"
	ProviderLocal = "local"
)

// Finalize reports that an object finished writing.
type Finalize struct {
	Provider string
	Bucket   string
	Key      string
	Metadata map[string]string
	// URI overrides the derived storage reference when set.
	URI string
}

// Handler consumes finalize events.
type Handler func(ctx context.Context, ev Finalize)

// StorageURI returns the reference the analysis service resolves.
func (f Finalize) StorageURI() string {
	if f.URI != "" {
		return f.URI
	}
	key := strings.TrimLeft(f.Key, "/")
	switch f.Provider {
	case ProviderGCS:
		return "gs://" + f.Bucket + "/" + key
	case ProviderS3, ProviderMinio:
		return "s3://" + f.Bucket + "/" + key
	default:
		return "file://" + key
	}
}

// TrimKeyPrefix strips a deployment key prefix so keys line up with the
// canonical calls/ layout. Keys outside the prefix are returned unchanged.
func TrimKeyPrefix(key, prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	if strings.HasPrefix(key, prefix+"/") {
		return strings.TrimPrefix(key, prefix+"/")
	}
	return key
}
