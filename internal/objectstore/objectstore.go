// Package objectstore implements C2, the content-addressed commit blob
// store: put/get/exists/data over immutable, gzip-compressed Commit
// payloads keyed by their SHA-256 hash.
//
// Grounded on BeadsLog internal/storage/sqlite/compact.go (size
// bookkeeping across a compression step) and hash_ids.go (content-hash id
// generation), generalized from per-issue hashing to whole-commit
// hashing.
package objectstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"time"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// gzipMagic is the two leading bytes of any gzip stream (RFC 1952).
var gzipMagic = []byte{0x1f, 0x8b}

// Backend is the durable row store C2 delegates writes/reads to; it maps
// onto the `commits` table from spec.md section 6. Implementations must
// treat Put as write-once-per-hash and idempotent on concurrent
// duplicate writes.
type Backend interface {
	PutCommit(ctx context.Context, c model.Commit) error
	GetCommit(ctx context.Context, hash string) (model.Commit, bool, error)
}

// Store is the commit object store. It is safe for concurrent use; all
// mutation happens in the Backend.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put content-addresses data, compresses it, and persists the resulting
// Commit. The hash is computed from the header fields and the
// uncompressed canonical payload (spec.md section 4.1).
func Put(ctx context.Context, s *Store, databaseId model.Id, parentHash, author, message string, data model.CommitData) (model.Commit, error) {
	payload, err := model.MarshalCanonicalCommitData(data)
	if err != nil {
		return model.Commit{}, apperr.Wrap(apperr.Internal, err, "serialize commit data")
	}

	hash := model.ComputeHash(databaseId, parentHash, author, message, payload)

	compressed, err := compress(payload)
	if err != nil {
		return model.Commit{}, apperr.Wrap(apperr.Internal, err, "compress commit payload")
	}

	c := model.Commit{
		Hash:               hash,
		DatabaseId:         databaseId,
		ParentHash:         parentHash,
		Author:             author,
		Message:            message,
		CreatedAt:          time.Now().UTC(),
		Data:               compressed,
		DataSize:           int64(len(compressed)),
		SchemaClassesCount: len(data.Schema.Classes),
		InstancesCount:     len(data.Instances),
	}

	if existing, ok, err := s.backend.GetCommit(ctx, hash); err != nil {
		return model.Commit{}, err
	} else if ok {
		// Write-once per hash: a duplicate Put is idempotent (spec.md
		// section 5), so return the stored commit unchanged.
		return existing, nil
	}

	if err := s.backend.PutCommit(ctx, c); err != nil {
		return model.Commit{}, err
	}
	return c, nil
}

// PutExisting persists a commit whose hash was computed elsewhere (e.g.
// a merge/rebase result already built up as a model.Commit). It still
// verifies the hash before writing, per the "programming error" contract
// in spec.md section 4.1.
func PutExisting(ctx context.Context, s *Store, c model.Commit, data model.CommitData) (model.Commit, error) {
	payload, err := model.MarshalCanonicalCommitData(data)
	if err != nil {
		return model.Commit{}, apperr.Wrap(apperr.Internal, err, "serialize commit data")
	}
	want := model.ComputeHash(c.DatabaseId, c.ParentHash, c.Author, c.Message, payload)
	if c.Hash != "" && c.Hash != want {
		return model.Commit{}, apperr.New(apperr.Internal, "commit hash mismatch: supplied %s, computed %s", c.Hash, want)
	}
	c.Hash = want
	compressed, err := compress(payload)
	if err != nil {
		return model.Commit{}, apperr.Wrap(apperr.Internal, err, "compress commit payload")
	}
	c.Data = compressed
	c.DataSize = int64(len(compressed))
	c.SchemaClassesCount = len(data.Schema.Classes)
	c.InstancesCount = len(data.Instances)

	if existing, ok, err := s.backend.GetCommit(ctx, c.Hash); err != nil {
		return model.Commit{}, err
	} else if ok {
		return existing, nil
	}
	if err := s.backend.PutCommit(ctx, c); err != nil {
		return model.Commit{}, err
	}
	return c, nil
}

// Get fetches the Commit metadata+blob by hash.
func (s *Store) Get(ctx context.Context, hash string) (model.Commit, error) {
	c, ok, err := s.backend.GetCommit(ctx, hash)
	if err != nil {
		return model.Commit{}, err
	}
	if !ok {
		return model.Commit{}, apperr.New(apperr.NotFound, "commit %s not found", hash)
	}
	return c, nil
}

// Exists reports whether a commit with the given hash has been stored.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	_, ok, err := s.backend.GetCommit(ctx, hash)
	return ok, err
}

// Data decodes a stored commit's payload back into CommitData. Decode
// failure is surfaced as a Corruption error per spec.md section 4.1.
func (s *Store) Data(ctx context.Context, hash string) (model.CommitData, error) {
	c, err := s.Get(ctx, hash)
	if err != nil {
		return model.CommitData{}, err
	}
	raw, err := decompress(c.Data)
	if err != nil {
		return model.CommitData{}, apperr.Wrap(apperr.Corruption, err, "decompress commit %s", hash)
	}
	data, err := model.UnmarshalCommitData(raw)
	if err != nil {
		return model.CommitData{}, apperr.Wrap(apperr.Corruption, err, "decode commit %s", hash)
	}
	return data, nil
}

// CreateInitial builds and stores an empty-schema, empty-instances commit
// with no parent, the seed every new branch starts from (spec.md section
// 4.1).
func CreateInitial(ctx context.Context, s *Store, databaseId model.Id, author string) (model.Commit, error) {
	return Put(ctx, s, databaseId, "", author, "initial commit", model.CommitData{
		Schema: model.Schema{Id: model.NewId()},
	})
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress detects the gzip magic header; payloads lacking it are
// treated as an uncompressed compatibility path (spec.md section 4.1).
func decompress(blob []byte) ([]byte, error) {
	if len(blob) < 2 || !bytes.Equal(blob[:2], gzipMagic) {
		return blob, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
