package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter writes objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
}

// LedgerArchiver exports resolved (applied or rejected) ledger entries to
// cold storage. Archival never deletes from the primary store; pruning is a
// separate, explicit step performed after the archive has been verified.
type LedgerArchiver interface {
	ArchiveResolved(ctx context.Context, before time.Time) (int64, error)
}
