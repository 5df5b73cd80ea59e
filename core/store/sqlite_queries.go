package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/foliocms/folio/core/cms"
	folioerrors "github.com/foliocms/folio/core/errors"
)

const timeFormat = time.RFC3339Nano

func (s *SQLiteStore) CreateCollection(ctx context.Context, collection *cms.Collection) error {
	branches, err := json.Marshal(branchesOrEmpty(collection.Branches))
	if err != nil {
		return fmt.Errorf("marshal branches: %w", err)
	}
	lockJSON, err := marshalNullable(collection.Lock)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, branches, lock_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		collection.ID.String(),
		collection.Name,
		string(branches),
		lockJSON,
		collection.CreatedAt.UTC().Format(timeFormat),
		collection.UpdatedAt.UTC().Format(timeFormat),
	)
	return err
}

func (s *SQLiteStore) GetCollection(ctx context.Context, id uuid.UUID) (*cms.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, branches, lock_json, created_at, updated_at
		FROM collections WHERE id = ?`, id.String())

	collection, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folioerrors.NewNotFound("collection", id.String())
	}
	return collection, err
}

func (s *SQLiteStore) UpdateCollection(ctx context.Context, collection *cms.Collection) error {
	branches, err := json.Marshal(branchesOrEmpty(collection.Branches))
	if err != nil {
		return fmt.Errorf("marshal branches: %w", err)
	}
	lockJSON, err := marshalNullable(collection.Lock)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE collections SET name = ?, branches = ?, lock_json = ?, updated_at = ?
		WHERE id = ?`,
		collection.Name,
		string(branches),
		lockJSON,
		time.Now().UTC().Format(timeFormat),
		collection.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireRow(result, "collection", collection.ID.String())
}

func (s *SQLiteStore) CreateContentWithVersion(ctx context.Context, content *cms.Content, entry *cms.VersionEntry) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if err := insertContent(ctx, tx, content); err != nil {
			return err
		}
		return insertVersion(ctx, tx, entry)
	})
}

func (s *SQLiteStore) GetContent(ctx context.Context, id uuid.UUID) (*cms.Content, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection_id, title, slug, status, elements, metadata,
		       current_version, lock_json, created_at, updated_at
		FROM contents WHERE id = ?`, id.String())

	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folioerrors.NewNotFound("content", id.String())
	}
	return content, err
}

func (s *SQLiteStore) UpdateContent(ctx context.Context, content *cms.Content) error {
	elements, metadata, lockJSON, err := marshalContentFields(content)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE contents
		SET title = ?, slug = ?, status = ?, elements = ?, metadata = ?,
		    current_version = ?, lock_json = ?, updated_at = ?
		WHERE id = ?`,
		content.Title,
		content.Slug,
		string(content.Status),
		elements,
		metadata,
		content.CurrentVersion,
		lockJSON,
		time.Now().UTC().Format(timeFormat),
		content.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireRow(result, "content", content.ID.String())
}

func (s *SQLiteStore) ListContents(ctx context.Context, filter ContentFilter) ([]*cms.Content, error) {
	var matcher glob.Glob
	if filter.SlugGlob != "" {
		compiled, err := glob.Compile(filter.SlugGlob)
		if err != nil {
			return nil, folioerrors.NewValidation("slug_glob", err.Error())
		}
		matcher = compiled
	}

	query := `
		SELECT id, collection_id, title, slug, status, elements, metadata,
		       current_version, lock_json, created_at, updated_at
		FROM contents`
	var args []any
	var where []string
	if filter.CollectionID != uuid.Nil {
		where = append(where, "collection_id = ?")
		args = append(args, filter.CollectionID.String())
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*cms.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		if matcher != nil && !matcher.Match(content.Slug) {
			continue
		}
		result = append(result, content)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *SQLiteStore) InsertVersion(ctx context.Context, entry *cms.VersionEntry) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		return insertVersion(ctx, tx, entry)
	})
}

func (s *SQLiteStore) GetVersionByNumber(ctx context.Context, contentID uuid.UUID, number int) (*cms.VersionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_id, version_number, snapshot, branch_tag,
		       is_branch_end, created_by, change_note, created_at
		FROM versions WHERE content_id = ? AND version_number = ?`,
		contentID.String(), number)

	entry, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folioerrors.NewNotFound("version", versionKey(contentID, number))
	}
	return entry, err
}

func (s *SQLiteStore) GetVersionByTag(ctx context.Context, contentID uuid.UUID, tag string) (*cms.VersionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_id, version_number, snapshot, branch_tag,
		       is_branch_end, created_by, change_note, created_at
		FROM versions WHERE content_id = ? AND branch_tag = ?`,
		contentID.String(), tag)

	entry, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folioerrors.NewNotFound("version", contentID.String()+"@"+tag)
	}
	return entry, err
}

func (s *SQLiteStore) LatestVersion(ctx context.Context, contentID uuid.UUID) (*cms.VersionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_id, version_number, snapshot, branch_tag,
		       is_branch_end, created_by, change_note, created_at
		FROM versions WHERE content_id = ?
		ORDER BY version_number DESC LIMIT 1`,
		contentID.String())

	entry, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, folioerrors.NewNotFound("version", contentID.String())
	}
	return entry, err
}

func (s *SQLiteStore) ListVersions(ctx context.Context, contentID uuid.UUID) ([]*cms.VersionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_id, version_number, snapshot, branch_tag,
		       is_branch_end, created_by, change_note, created_at
		FROM versions WHERE content_id = ?
		ORDER BY version_number DESC`,
		contentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*cms.VersionEntry
	for rows.Next() {
		entry, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) MaxVersionNumber(ctx context.Context, contentID uuid.UUID) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(version_number) FROM versions WHERE content_id = ?",
		contentID.String(),
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (s *SQLiteStore) TagVersion(ctx context.Context, versionID uuid.UUID, tag string, branchEnd bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE versions SET branch_tag = ?, is_branch_end = ? WHERE id = ?",
		tag, boolToInt(branchEnd), versionID.String())
	if err != nil {
		return err
	}
	return requireRow(result, "version", versionID.String())
}

func (s *SQLiteStore) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM versions WHERE id = ?", versionID.String())
	if err != nil {
		return err
	}
	return requireRow(result, "version", versionID.String())
}

func insertContent(ctx context.Context, tx *sql.Tx, content *cms.Content) error {
	elements, metadata, lockJSON, err := marshalContentFields(content)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contents (id, collection_id, title, slug, status, elements,
		                      metadata, current_version, lock_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		content.ID.String(),
		content.CollectionID.String(),
		content.Title,
		content.Slug,
		string(content.Status),
		elements,
		metadata,
		content.CurrentVersion,
		lockJSON,
		content.CreatedAt.UTC().Format(timeFormat),
		content.UpdatedAt.UTC().Format(timeFormat),
	)
	return err
}

func insertVersion(ctx context.Context, tx *sql.Tx, entry *cms.VersionEntry) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (id, content_id, version_number, snapshot, branch_tag,
		                      is_branch_end, created_by, change_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.ContentID.String(),
		entry.VersionNumber,
		string(snapshot),
		entry.BranchTag,
		boolToInt(entry.IsBranchEnd),
		entry.CreatedBy,
		entry.ChangeNote,
		entry.CreatedAt.UTC().Format(timeFormat),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateVersion
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*cms.Collection, error) {
	var (
		idStr, name, branchesJSON string
		lockJSON                  sql.NullString
		createdAt, updatedAt      string
	)
	if err := row.Scan(&idStr, &name, &branchesJSON, &lockJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse collection id: %w", err)
	}

	collection := &cms.Collection{ID: id, Name: name}
	if err := json.Unmarshal([]byte(branchesJSON), &collection.Branches); err != nil {
		return nil, fmt.Errorf("unmarshal branches: %w", err)
	}
	if collection.Lock, err = unmarshalLock(lockJSON); err != nil {
		return nil, err
	}
	if collection.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if collection.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return collection, nil
}

func scanContent(row rowScanner) (*cms.Content, error) {
	var (
		idStr, collectionStr, title, slug, status string
		elementsJSON, metadataJSON, lockJSON      sql.NullString
		currentVersion                            int
		createdAt, updatedAt                      string
	)
	err := row.Scan(&idStr, &collectionStr, &title, &slug, &status,
		&elementsJSON, &metadataJSON, &currentVersion, &lockJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse content id: %w", err)
	}
	collectionID, err := uuid.Parse(collectionStr)
	if err != nil {
		return nil, fmt.Errorf("parse collection id: %w", err)
	}

	content := &cms.Content{
		ID:             id,
		CollectionID:   collectionID,
		Title:          title,
		Slug:           slug,
		Status:         cms.ContentStatus(status),
		CurrentVersion: currentVersion,
	}
	if elementsJSON.Valid && elementsJSON.String != "" {
		if err := json.Unmarshal([]byte(elementsJSON.String), &content.Elements); err != nil {
			return nil, fmt.Errorf("unmarshal elements: %w", err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &content.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if content.Lock, err = unmarshalLock(lockJSON); err != nil {
		return nil, err
	}
	if content.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if content.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return content, nil
}

func scanVersion(row rowScanner) (*cms.VersionEntry, error) {
	var (
		idStr, contentStr, snapshotJSON  string
		number, branchEnd                int
		branchTag, createdBy, changeNote string
		createdAt                        string
	)
	err := row.Scan(&idStr, &contentStr, &number, &snapshotJSON, &branchTag,
		&branchEnd, &createdBy, &changeNote, &createdAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse version id: %w", err)
	}
	contentID, err := uuid.Parse(contentStr)
	if err != nil {
		return nil, fmt.Errorf("parse content id: %w", err)
	}

	entry := &cms.VersionEntry{
		ID:            id,
		ContentID:     contentID,
		VersionNumber: number,
		BranchTag:     branchTag,
		IsBranchEnd:   branchEnd != 0,
		CreatedBy:     createdBy,
		ChangeNote:    changeNote,
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &entry.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return entry, nil
}

func marshalContentFields(content *cms.Content) (elements, metadata, lockJSON sql.NullString, err error) {
	if content.Elements != nil {
		data, merr := json.Marshal(content.Elements)
		if merr != nil {
			err = fmt.Errorf("marshal elements: %w", merr)
			return
		}
		elements = sql.NullString{String: string(data), Valid: true}
	}
	if content.Metadata != nil {
		data, merr := json.Marshal(content.Metadata)
		if merr != nil {
			err = fmt.Errorf("marshal metadata: %w", merr)
			return
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	lockJSON, err = marshalNullable(content.Lock)
	return
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil || isNilPointer(v) {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isNilPointer(v any) bool {
	lock, ok := v.(*cms.LockInfo)
	return ok && lock == nil
}

func unmarshalLock(lockJSON sql.NullString) (*cms.LockInfo, error) {
	if !lockJSON.Valid || lockJSON.String == "" {
		return nil, nil
	}
	var lock cms.LockInfo
	if err := json.Unmarshal([]byte(lockJSON.String), &lock); err != nil {
		return nil, fmt.Errorf("unmarshal lock: %w", err)
	}
	return &lock, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

func requireRow(result sql.Result, resource, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return folioerrors.NewNotFound(resource, id)
	}
	return nil
}

func branchesOrEmpty(branches []string) []string {
	if branches == nil {
		return []string{}
	}
	return branches
}

func versionKey(contentID uuid.UUID, number int) string {
	return fmt.Sprintf("%s@v%d", contentID, number)
}
