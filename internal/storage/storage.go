// Package storage stores product and category images and returns the public
// URL each one is served from.
package storage

import (
	"context"
	"errors"
)

// Object is a file to store under Key.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Uploader stores objects and returns their public URL.
type Uploader interface {
	// Upload stores obj, replacing any object with the same key.
	Upload(ctx context.Context, obj Object) (string, error)
}

// ErrEmptyObject is returned for uploads without data.
var ErrEmptyObject = errors.New("storage: empty object")
