// Package repository holds the results of a normalization run until they are
// written to a sink.
package repository

import (
	"context"

	"github.com/okian/habitflow/internal/domain/model"
)

// Entry is a normalized record as stored.
type Entry struct {
	Record model.Record
	// Unordered marks a day whose events still go backwards after
	// reconciliation.
	Unordered bool
}

// Rejection is a source row that could not be normalized.
type Rejection struct {
	Seq    int
	Line   int
	Reason string
	Err    error
}

// Store provides write access for workers and ordered reads for sinks.
type Store interface {
	// Put stores a normalized record. Returns ErrDuplicateSeq if the
	// record's Seq is already stored or rejected.
	Put(ctx context.Context, e Entry) error

	// Reject stores a row failure. Returns ErrDuplicateSeq like Put.
	Reject(ctx context.Context, r Rejection) error

	// Entries returns stored records ordered by Seq.
	Entries(ctx context.Context) []Entry

	// Rejections returns stored failures ordered by Seq.
	Rejections(ctx context.Context) []Rejection
}
