package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/tags"
)

// Store wraps a *sql.DB and implements every Backend interface the
// versioning engine's packages declare (objectstore.Backend,
// branchstore.Backend, workingcache.Backend, tags.Backend plus
// tags.CommitLookup), so one sqlstore.Store is the single durable
// dependency the whole engine needs wired in.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// DB returns the underlying connection, for callers that need to close
// it or run a migration/compaction pass outside this package's surface.
func (s *Store) DB() *sql.DB { return s.db }

// --- databases ---

// CreateDatabase inserts a new database row.
func (s *Store) CreateDatabase(ctx context.Context, d model.Database) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO databases (id, name, description, created_at, default_branch_name)
		VALUES (?, ?, ?, ?, ?)
	`, string(d.Id), d.Name, d.Description, d.CreatedAt, d.DefaultBranchName)
	if err != nil {
		return fmt.Errorf("insert database %s: %w", d.Id, err)
	}
	return nil
}

// GetDatabase satisfies branchstore.Backend's GetDatabase.
func (s *Store) GetDatabase(ctx context.Context, dbId model.Id) (model.Database, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, default_branch_name FROM databases WHERE id = ?
	`, string(dbId))
	var d model.Database
	var id string
	if err := row.Scan(&id, &d.Name, &d.Description, &d.CreatedAt, &d.DefaultBranchName); err != nil {
		if err == sql.ErrNoRows {
			return model.Database{}, false, nil
		}
		return model.Database{}, false, fmt.Errorf("get database %s: %w", dbId, err)
	}
	d.Id = model.Id(id)
	return d, true, nil
}

// ListDatabases returns every database row.
func (s *Store) ListDatabases(ctx context.Context) ([]model.Database, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, default_branch_name FROM databases ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var out []model.Database
	for rows.Next() {
		var d model.Database
		var id string
		if err := rows.Scan(&id, &d.Name, &d.Description, &d.CreatedAt, &d.DefaultBranchName); err != nil {
			return nil, fmt.Errorf("scan database row: %w", err)
		}
		d.Id = model.Id(id)
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- branches (branchstore.Backend) ---

func (s *Store) GetBranch(ctx context.Context, dbId model.Id, name string) (model.Branch, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT database_id, name, description, parent_branch_name, current_commit_hash,
		       commit_message, author, status, created_at
		FROM branches WHERE database_id = ? AND name = ?
	`, string(dbId), name)
	b, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return model.Branch{}, false, nil
	}
	if err != nil {
		return model.Branch{}, false, fmt.Errorf("get branch %s/%s: %w", dbId, name, err)
	}
	return b, true, nil
}

func (s *Store) ListBranches(ctx context.Context, dbId model.Id) ([]model.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT database_id, name, description, parent_branch_name, current_commit_hash,
		       commit_message, author, status, created_at
		FROM branches WHERE database_id = ? ORDER BY created_at
	`, string(dbId))
	if err != nil {
		return nil, fmt.Errorf("list branches for %s: %w", dbId, err)
	}
	defer rows.Close()

	var out []model.Branch
	for rows.Next() {
		b, err := scanBranchRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpsertBranch(ctx context.Context, b model.Branch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (database_id, name, description, parent_branch_name, current_commit_hash,
		                       commit_message, author, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(database_id, name) DO UPDATE SET
			description = excluded.description,
			parent_branch_name = excluded.parent_branch_name,
			current_commit_hash = excluded.current_commit_hash,
			commit_message = excluded.commit_message,
			author = excluded.author,
			status = excluded.status
	`, string(b.DatabaseId), b.Name, b.Description, b.ParentBranchName, b.CurrentCommitHash,
		b.CommitMessage, b.Author, string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert branch %s/%s: %w", b.DatabaseId, b.Name, err)
	}
	return nil
}

func (s *Store) DeleteBranch(ctx context.Context, dbId model.Id, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM branches WHERE database_id = ? AND name = ?`, string(dbId), name)
	if err != nil {
		return fmt.Errorf("delete branch %s/%s: %w", dbId, name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "branch %s/%s not found", dbId, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBranch(row *sql.Row) (model.Branch, error) {
	return scanBranchRows(row)
}

func scanBranchRows(row scanner) (model.Branch, error) {
	var b model.Branch
	var dbId, status string
	if err := row.Scan(&dbId, &b.Name, &b.Description, &b.ParentBranchName, &b.CurrentCommitHash,
		&b.CommitMessage, &b.Author, &status, &b.CreatedAt); err != nil {
		return model.Branch{}, err
	}
	b.DatabaseId = model.Id(dbId)
	b.Status = model.BranchStatus(status)
	return b, nil
}

// --- commits (objectstore.Backend, tags.CommitLookup) ---

func (s *Store) PutCommit(ctx context.Context, c model.Commit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits (hash, database_id, parent_hash, author, message, created_at,
		                      data, data_size, schema_classes_count, instances_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, c.Hash, string(c.DatabaseId), c.ParentHash, c.Author, c.Message, c.CreatedAt,
		c.Data, c.DataSize, c.SchemaClassesCount, c.InstancesCount)
	if err != nil {
		return fmt.Errorf("put commit %s: %w", c.Hash, err)
	}
	return nil
}

func (s *Store) GetCommit(ctx context.Context, hash string) (model.Commit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, database_id, parent_hash, author, message, created_at, data,
		       data_size, schema_classes_count, instances_count
		FROM commits WHERE hash = ?
	`, hash)
	var c model.Commit
	var dbId string
	if err := row.Scan(&c.Hash, &dbId, &c.ParentHash, &c.Author, &c.Message, &c.CreatedAt,
		&c.Data, &c.DataSize, &c.SchemaClassesCount, &c.InstancesCount); err != nil {
		if err == sql.ErrNoRows {
			return model.Commit{}, false, nil
		}
		return model.Commit{}, false, fmt.Errorf("get commit %s: %w", hash, err)
	}
	c.DatabaseId = model.Id(dbId)
	return c, true, nil
}

// --- working commits (workingcache.Backend) ---

func (s *Store) GetWorkingCommit(ctx context.Context, id model.Id) (model.WorkingCommit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, database_id, branch_name, based_on_hash, author, created_at, updated_at,
		       schema_data, instances_data, status, merge_state
		FROM working_commits WHERE id = ?
	`, string(id))
	wc, err := scanWorkingCommit(row)
	if err == sql.ErrNoRows {
		return model.WorkingCommit{}, false, nil
	}
	if err != nil {
		return model.WorkingCommit{}, false, fmt.Errorf("get working commit %s: %w", id, err)
	}
	return wc, true, nil
}

func (s *Store) PutWorkingCommit(ctx context.Context, wc model.WorkingCommit) error {
	schemaJSON, err := json.Marshal(wc.SchemaData)
	if err != nil {
		return fmt.Errorf("marshal working commit %s schema: %w", wc.Id, err)
	}
	instancesJSON, err := json.Marshal(wc.InstancesData)
	if err != nil {
		return fmt.Errorf("marshal working commit %s instances: %w", wc.Id, err)
	}
	var mergeStateJSON string
	if wc.MergeState != nil {
		b, err := json.Marshal(wc.MergeState)
		if err != nil {
			return fmt.Errorf("marshal working commit %s merge state: %w", wc.Id, err)
		}
		mergeStateJSON = string(b)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO working_commits (id, database_id, branch_name, based_on_hash, author, created_at,
		                              updated_at, schema_data, instances_data, status, merge_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			branch_name = excluded.branch_name,
			based_on_hash = excluded.based_on_hash,
			author = excluded.author,
			updated_at = excluded.updated_at,
			schema_data = excluded.schema_data,
			instances_data = excluded.instances_data,
			status = excluded.status,
			merge_state = excluded.merge_state
	`, string(wc.Id), string(wc.DatabaseId), wc.BranchName, wc.BasedOnHash, wc.Author,
		wc.CreatedAt, wc.UpdatedAt, string(schemaJSON), string(instancesJSON), string(wc.Status), mergeStateJSON)
	if err != nil {
		return fmt.Errorf("put working commit %s: %w", wc.Id, err)
	}
	return nil
}

func (s *Store) DeleteWorkingCommit(ctx context.Context, id model.Id) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM working_commits WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete working commit %s: %w", id, err)
	}
	return nil
}

func scanWorkingCommit(row scanner) (model.WorkingCommit, error) {
	var wc model.WorkingCommit
	var id, dbId, schemaJSON, instancesJSON, status, mergeStateJSON string
	if err := row.Scan(&id, &dbId, &wc.BranchName, &wc.BasedOnHash, &wc.Author, &wc.CreatedAt,
		&wc.UpdatedAt, &schemaJSON, &instancesJSON, &status, &mergeStateJSON); err != nil {
		return model.WorkingCommit{}, err
	}
	wc.Id = model.Id(id)
	wc.DatabaseId = model.Id(dbId)
	wc.Status = model.WorkingCommitStatus(status)
	if err := json.Unmarshal([]byte(schemaJSON), &wc.SchemaData); err != nil {
		return model.WorkingCommit{}, fmt.Errorf("decode schema_data: %w", err)
	}
	if err := json.Unmarshal([]byte(instancesJSON), &wc.InstancesData); err != nil {
		return model.WorkingCommit{}, fmt.Errorf("decode instances_data: %w", err)
	}
	if mergeStateJSON != "" {
		var ms model.MergeState
		if err := json.Unmarshal([]byte(mergeStateJSON), &ms); err != nil {
			return model.WorkingCommit{}, fmt.Errorf("decode merge_state: %w", err)
		}
		wc.MergeState = &ms
	}
	return wc, nil
}

// --- commit tags (tags.Backend) ---

func (s *Store) InsertTag(ctx context.Context, t tags.CommitTag) (tags.CommitTag, error) {
	metaJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return tags.CommitTag{}, fmt.Errorf("marshal tag metadata: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO commit_tags (commit_hash, tag_type, tag_name, tag_description, created_at, created_by, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.CommitHash, string(t.TagType), t.TagName, t.TagDescription, t.CreatedAt, t.CreatedBy, string(metaJSON))
	if err != nil {
		return tags.CommitTag{}, fmt.Errorf("insert tag on commit %s: %w", t.CommitHash, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return tags.CommitTag{}, fmt.Errorf("read inserted tag id: %w", err)
	}
	t.Id = id
	return t, nil
}

func (s *Store) ListTagsForCommit(ctx context.Context, commitHash string) ([]tags.CommitTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_hash, tag_type, tag_name, tag_description, created_at, created_by, metadata
		FROM commit_tags WHERE commit_hash = ? ORDER BY created_at
	`, commitHash)
	if err != nil {
		return nil, fmt.Errorf("list tags for commit %s: %w", commitHash, err)
	}
	defer rows.Close()
	return scanTagRows(rows)
}

func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM commit_tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "tag %d not found", id)
	}
	return nil
}

func (s *Store) SearchTags(ctx context.Context, q tags.Query) ([]tags.CommitTag, error) {
	query := `SELECT id, commit_hash, tag_type, tag_name, tag_description, created_at, created_by, metadata FROM commit_tags WHERE 1=1`
	var args []any
	if q.TagType != "" {
		query += ` AND tag_type = ?`
		args = append(args, string(q.TagType))
	}
	if q.TagName != "" {
		query += ` AND tag_name LIKE ?`
		args = append(args, "%"+q.TagName+"%")
	}
	query += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	defer rows.Close()
	return scanTagRows(rows)
}

func scanTagRows(rows *sql.Rows) ([]tags.CommitTag, error) {
	var out []tags.CommitTag
	for rows.Next() {
		var t tags.CommitTag
		var tagType, metaJSON string
		if err := rows.Scan(&t.Id, &t.CommitHash, &tagType, &t.TagName, &t.TagDescription,
			&t.CreatedAt, &t.CreatedBy, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		t.TagType = tags.Type(tagType)
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &t.Metadata); err != nil {
				return nil, fmt.Errorf("decode tag metadata: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
