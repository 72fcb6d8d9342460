// Package archive exports registry snapshots to a blob store and restores
// them into a registry store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"kittycore/internal/blob"
	"kittycore/internal/infra/persistence/memory"
)

// FormatVersion is written into every archived document.
const FormatVersion = 1

const (
	keyPrefix   = "snapshots/"
	contentType = "application/json"
)

// Exporter is implemented by every registry store.
type Exporter interface {
	ExportState() memory.Snapshot
}

// Importer replaces a store's state with a snapshot.
type Importer interface {
	ImportSnapshot(ctx context.Context, snapshot memory.Snapshot) error
}

// Document is the archived representation of a snapshot.
type Document struct {
	Version   int             `json:"version"`
	Block     uint64          `json:"block"`
	CreatedAt time.Time       `json:"created_at"`
	Snapshot  memory.Snapshot `json:"snapshot"`
}

// Archive writes and reads snapshot documents in a blob store.
type Archive struct {
	store blob.Store
	now   func() time.Time
}

// New wraps store.
func New(store blob.Store) *Archive {
	return &Archive{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Key returns the object key for the snapshot taken at block.
func Key(block uint64) string {
	return fmt.Sprintf("%sblock-%020d.json", keyPrefix, block)
}

// Export archives the current state of src as of block.
func (a *Archive) Export(ctx context.Context, src Exporter, block uint64) (blob.Info, error) {
	doc := Document{
		Version:   FormatVersion,
		Block:     block,
		CreatedAt: a.now(),
		Snapshot:  src.ExportState(),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	info, err := a.store.Put(ctx, Key(block), bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"block":   strconv.FormatUint(block, 10),
			"kitties": strconv.FormatUint(uint64(doc.Snapshot.NextID), 10),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot: %w", err)
	}
	return info, nil
}

// Load reads the document stored under key.
func (a *Archive) Load(ctx context.Context, key string) (Document, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", key, err)
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc.Version != FormatVersion {
		return Document{}, fmt.Errorf("snapshot %s has unsupported version %d", key, doc.Version)
	}
	return doc, nil
}

// Restore loads key into dst.
func (a *Archive) Restore(ctx context.Context, key string, dst Importer) (Document, error) {
	doc, err := a.Load(ctx, key)
	if err != nil {
		return Document{}, err
	}
	if err := dst.ImportSnapshot(ctx, doc.Snapshot); err != nil {
		return Document{}, fmt.Errorf("import %s: %w", key, err)
	}
	return doc, nil
}

// ErrEmpty is returned by Latest when nothing has been archived.
var ErrEmpty = errors.New("no archived snapshots")

// List returns the archived snapshot keys in block order.
func (a *Archive) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	return out, nil
}

// Latest returns the key of the highest archived block.
func (a *Archive) Latest(ctx context.Context) (string, error) {
	infos, err := a.List(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", ErrEmpty
	}
	return infos[len(infos)-1].Key, nil
}
