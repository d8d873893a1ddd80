package vectorstore

import (
	"errors"
	"strings"
)

var (
	// ErrConfigurationMissing means no backing service address was
	// configured. Fatal at startup, never retried.
	ErrConfigurationMissing = errors.New("vectorstore: MILVUS_ADDRESS not configured")

	// ErrSchemaMissing means the shared collection cannot be found even
	// after EnsureCollection ran. That is a provisioning bug, not a race.
	ErrSchemaMissing = errors.New("vectorstore: collection missing after ensure")
)

// The Milvus client surfaces server errors as strings, so provisioning
// idempotency comes down to message matching, the same way the SDK's own
// merr helpers classify them.

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exist") || strings.Contains(msg, "duplicated")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "not exist") ||
		strings.Contains(msg, "can't find")
}

func isCollectionMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "collection") && isNotFound(err)
}
