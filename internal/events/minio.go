package events

import (
	"context"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"

	"voicecare-backend/internal/shared/telemetry"
)

// MinioSource streams object-created notifications from a MinIO bucket.
type MinioSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// Run blocks until ctx is done, invoking handle for each created object.
func (s *MinioSource) Run(ctx context.Context, handle Handler) error {
	notifications := s.Client.ListenBucketNotification(ctx, s.Bucket, s.Prefix, "", []string{"s3:ObjectCreated:*"})
	telemetry.Info("events.minio_listening", map[string]any{"bucket": s.Bucket, "prefix": s.Prefix})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case info, ok := <-notifications:
			if !ok {
				return ctx.Err()
			}
			if info.Err != nil {
				telemetry.Error("events.minio_error", map[string]any{"bucket": s.Bucket, "error": info.Err})
				continue
			}
			for _, ev := range fromMinioInfo(info) {
				handle(ctx, ev)
			}
		}
	}
}

func fromMinioInfo(info notification.Info) []Finalize {
	out := make([]Finalize, 0, len(info.Records))
	for _, rec := range info.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		out = append(out, Finalize{
			Provider: ProviderMinio,
			Bucket:   rec.S3.Bucket.Name,
			Key:      key,
			Metadata: rec.S3.Object.UserMetadata,
		})
	}
	return out
}
