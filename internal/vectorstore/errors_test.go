package vectorstore

import (
	"errors"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err           error
		alreadyExists bool
		notFound      bool
		collMissing   bool
	}{
		{nil, false, false, false},
		{errors.New("partition already exists"), true, false, false},
		{errors.New("CreatePartition failed: partition name duplicated"), true, false, false},
		{errors.New("partition not found"), false, true, false},
		{errors.New("can't find collection: doc_chunks"), false, true, true},
		{errors.New("collection doc_chunks does not exist"), false, true, true},
		{errors.New("rpc deadline exceeded"), false, false, false},
	}

	for _, tc := range cases {
		if got := isAlreadyExists(tc.err); got != tc.alreadyExists {
			t.Errorf("isAlreadyExists(%v) = %v, want %v", tc.err, got, tc.alreadyExists)
		}
		if got := isNotFound(tc.err); got != tc.notFound {
			t.Errorf("isNotFound(%v) = %v, want %v", tc.err, got, tc.notFound)
		}
		if got := isCollectionMissing(tc.err); got != tc.collMissing {
			t.Errorf("isCollectionMissing(%v) = %v, want %v", tc.err, got, tc.collMissing)
		}
	}
}
