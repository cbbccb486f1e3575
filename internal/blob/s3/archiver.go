package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// ResolvedSource provides read access to resolved (applied or rejected)
// price changes for archival purposes. The Postgres ledger store satisfies
// this through its ListResolvedBefore method; the archiver deliberately asks
// for no more than that.
type ResolvedSource interface {
	ListResolvedBefore(ctx context.Context, before time.Time) ([]domain.PriceChange, error)
}

// Archiver implements domain.LedgerArchiver by querying resolved price
// changes, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived entries from the primary store is intentionally
// NOT performed here -- pruning is a separate, explicit step executed after
// the archive has been verified.
type Archiver struct {
	writer   domain.BlobWriter
	resolved ResolvedSource
	audit    domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, resolved ResolvedSource, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:   writer,
		resolved: resolved,
		audit:    audit,
	}
}

// ArchiveResolved queries all applied/rejected price changes before the
// cutoff, serializes them to JSONL, and uploads the file to S3 at
// archive/price_changes/YYYY-MM.jsonl. The archival event is recorded in
// the audit log and the count of archived records is returned.
func (a *Archiver) ArchiveResolved(ctx context.Context, before time.Time) (int64, error) {
	changes, err := a.resolved.ListResolvedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved query: %w", err)
	}
	if len(changes) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(changes)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved marshal: %w", err)
	}

	path := archivePath("price_changes", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved upload: %w", err)
	}

	count := int64(len(changes))

	if err := a.audit.Log(ctx, "archive.price_changes", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive resolved audit log: %w", err)
	}

	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/price_changes/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.LedgerArchiver = (*Archiver)(nil)
