// Package storagepath maps object keys of uploaded call recordings to the
// identifiers of the call they belong to.
//
// Recordings live under calls/{userId}/{seniorId}/{callId}/{fileName}. Keys
// outside that prefix are not ours, and keys whose file name carries the
// derived-artifact marker were written by the pipeline itself.
package storagepath

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// Prefix is the top-level folder holding uploaded recordings.
	Prefix = "calls/"
	// DerivedMarker tags files generated by the pipeline from a recording.
	DerivedMarker = "_processed"

	minSegments = 5
)

var (
	// ErrNotApplicable marks keys outside the recordings prefix.
	ErrNotApplicable = errors.New("object key is not a call recording")
	// ErrDerivedArtifact marks keys of files written by the pipeline.
	ErrDerivedArtifact = errors.New("object key is a derived artifact")
	// ErrMalformedKey marks keys under the prefix that miss identifiers.
	ErrMalformedKey = errors.New("malformed call recording key")
)

// Ref identifies the call a recording belongs to.
type Ref struct {
	UserID   string
	SeniorID string
	CallID   string
	FileName string
	Key      string
}

// Parse extracts the call identifiers from an object key.
func Parse(key string) (Ref, error) {
	if !strings.HasPrefix(key, Prefix) {
		return Ref{}, ErrNotApplicable
	}
	parts := strings.Split(key, "/")
	if len(parts) < minSegments {
		return Ref{}, fmt.Errorf("%w: %d segments in %q", ErrMalformedKey, len(parts), key)
	}
	fileName := strings.Join(parts[4:], "/")
	if strings.Contains(fileName, DerivedMarker) {
		return Ref{}, ErrDerivedArtifact
	}
	ref := Ref{
		UserID:   parts[1],
		SeniorID: parts[2],
		CallID:   parts[3],
		FileName: fileName,
		Key:      key,
	}
	if ref.UserID == "" || ref.SeniorID == "" || ref.CallID == "" || strings.TrimSpace(ref.FileName) == "" {
		return Ref{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedKey, key)
	}
	return ref, nil
}

// Build returns the object key for a recording.
func Build(userID, seniorID, callID, fileName string) string {
	return Prefix + path.Join(userID, seniorID, callID, fileName)
}

// DerivedKey returns the key of an artifact derived from a recording, such
// as a transcoded copy. Parse ignores the result.
func DerivedKey(key, suffix string) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	base := strings.TrimSuffix(file, ext)
	if suffix == "" {
		suffix = ext
	}
	return dir + base + DerivedMarker + suffix
}
