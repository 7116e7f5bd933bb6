package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	lambdaevents "github.com/aws/aws-lambda-go/events"
)

// FromS3Event converts object-created records. Other record types are skipped.
// The original key (with prefix) is kept in URI so the analysis service
// resolves the real object.
func FromS3Event(ev lambdaevents.S3Event, keyPrefix string) []Finalize {
	out := make([]Finalize, 0, len(ev.Records))
	for _, rec := range ev.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated:") {
			continue
		}
		key := rec.S3.Object.URLDecodedKey
		if key == "" {
			decoded, err := url.QueryUnescape(rec.S3.Object.Key)
			if err != nil {
				decoded = rec.S3.Object.Key
			}
			key = decoded
		}
		bucket := rec.S3.Bucket.Name
		out = append(out, Finalize{
			Provider: ProviderS3,
			Bucket:   bucket,
			Key:      TrimKeyPrefix(key, keyPrefix),
			URI:      "s3://" + bucket + "/" + key,
		})
	}
	return out
}

// DecodeS3Notification parses an S3 event notification body as delivered to
// SQS or an HTTP endpoint. S3 test events decode to no records.
func DecodeS3Notification(body []byte, keyPrefix string) ([]Finalize, error) {
	var ev lambdaevents.S3Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode s3 notification: %w", err)
	}
	return FromS3Event(ev, keyPrefix), nil
}
