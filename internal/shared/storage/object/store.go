package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// ObjectStore defines the contract for saving and retrieving recordings at
// caller-chosen keys.
type ObjectStore interface {
	// Put writes r at key. An empty contentType is sniffed from the first
	// 512 bytes. It returns the stored size and the content type used.
	Put(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URI returns the reference handed to the analysis service for key.
	URI(key string) string
}

// Sniff detects the content type of r and returns a reader that replays the
// consumed bytes.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head := append([]byte(nil), sniff[:n]...)
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
