package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/errors"
)

// UpsertClip inserts or replaces a clip row keyed by id and stamps
// updated_at. New rows get the next position within their section.
func UpsertClip(db *sql.DB, c *clip.Clip) error {
	if c.ID == "" {
		return errors.NewInvalidRequest("clip id is required")
	}

	tagsJSON, err := marshalStrings(c.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}
	shotsJSON, err := marshalStrings(c.Screenshots)
	if err != nil {
		return errors.NewInternal(err)
	}

	now := time.Now().UnixMilli()

	query := `
		INSERT INTO clips (
			id, title, body, notes, tags_json, screenshots_json,
			section_id, source_url, source_title, icon, color,
			position, captured_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM clips), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			notes = excluded.notes,
			tags_json = excluded.tags_json,
			screenshots_json = excluded.screenshots_json,
			section_id = excluded.section_id,
			source_url = excluded.source_url,
			source_title = excluded.source_title,
			icon = excluded.icon,
			color = excluded.color,
			updated_at = excluded.updated_at
	`

	_, err = db.Exec(query,
		c.ID, c.Title, c.Text, c.Notes, tagsJSON, shotsJSON,
		c.SectionID, c.SourceURL, c.SourceTitle, c.Icon, c.Color,
		c.CapturedAt, now,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	c.UpdatedAt = now
	return nil
}

// GetClips returns all clips ordered by their persisted position.
func GetClips(db *sql.DB) ([]clip.Clip, error) {
	query := `
		SELECT id, title, body, notes, tags_json, screenshots_json,
			section_id, source_url, source_title, icon, color,
			captured_at, updated_at
		FROM clips
		ORDER BY position
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	clips := make([]clip.Clip, 0)
	for rows.Next() {
		var (
			c         clip.Clip
			tagsJSON  sql.NullString
			shotsJSON sql.NullString
		)
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Text, &c.Notes, &tagsJSON, &shotsJSON,
			&c.SectionID, &c.SourceURL, &c.SourceTitle, &c.Icon, &c.Color,
			&c.CapturedAt, &c.UpdatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := unmarshalStrings(tagsJSON, &c.Tags); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := unmarshalStrings(shotsJSON, &c.Screenshots); err != nil {
			return nil, errors.NewInternal(err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return clips, nil
}

// GetClipSection returns the section id of a clip.
func GetClipSection(db *sql.DB, id string) (string, error) {
	var sectionID string
	err := db.QueryRow(`SELECT section_id FROM clips WHERE id = ?`, id).Scan(&sectionID)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFound(id)
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return sectionID, nil
}

// DeleteClip removes a clip by id.
func DeleteClip(db *sql.DB, id string) error {
	result, err := db.Exec(`DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// SaveClipOrder rewrites clip positions to match the given id order.
// Unknown ids are ignored.
func SaveClipOrder(db *sql.DB, ids []string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE clips SET position = ? WHERE id = ?`, i, id); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSections returns all sections ordered by their persisted position.
func GetSections(db *sql.DB) ([]clip.Section, error) {
	rows, err := db.Query(`
		SELECT id, name, locked, color, icon, export_path
		FROM sections
		ORDER BY position
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	sections := make([]clip.Section, 0)
	for rows.Next() {
		var (
			s      clip.Section
			locked int
		)
		if err := rows.Scan(&s.ID, &s.Name, &locked, &s.Color, &s.Icon, &s.ExportPath); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Locked = locked != 0
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return sections, nil
}

// GetSection returns a single section by id.
func GetSection(db *sql.DB, id string) (*clip.Section, error) {
	var (
		s      clip.Section
		locked int
	)
	err := db.QueryRow(`
		SELECT id, name, locked, color, icon, export_path
		FROM sections WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &locked, &s.Color, &s.Icon, &s.ExportPath)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s.Locked = locked != 0
	return &s, nil
}

// InsertSection stores a new section at the end of the order.
func InsertSection(db *sql.DB, s *clip.Section) error {
	if s.ID == "" {
		return errors.NewInvalidRequest("section id is required")
	}
	_, err := db.Exec(`
		INSERT INTO sections (id, name, locked, color, icon, export_path, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM sections))
	`, s.ID, s.Name, boolToInt(s.Locked), s.Color, s.Icon, s.ExportPath)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateSection replaces the mutable fields of a section.
func UpdateSection(db *sql.DB, s *clip.Section) error {
	result, err := db.Exec(`
		UPDATE sections SET name = ?, locked = ?, color = ?, icon = ?, export_path = ?
		WHERE id = ?
	`, s.Name, boolToInt(s.Locked), s.Color, s.Icon, s.ExportPath, s.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(s.ID)
	}
	return nil
}

// DeleteSection removes a section and moves its member clips to the
// inbox.
func DeleteSection(db *sql.DB, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	if _, err := tx.Exec(
		`UPDATE clips SET section_id = ? WHERE section_id = ?`,
		clip.InboxSectionID, id,
	); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SaveSectionOrder rewrites section positions to match the given id
// order. Unknown ids are ignored.
func SaveSectionOrder(db *sql.DB, ids []string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE sections SET position = ? WHERE id = ?`, i, id); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PutScreenshot stores or replaces a screenshot raster by filename.
func PutScreenshot(db *sql.DB, filename string, data []byte) error {
	if filename == "" {
		return errors.NewInvalidRequest("screenshot filename is required")
	}
	_, err := db.Exec(`
		INSERT INTO screenshots (filename, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, filename, data, time.Now().UnixMilli())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetScreenshot returns the raster bytes for a filename.
func GetScreenshot(db *sql.DB, filename string) ([]byte, error) {
	var data []byte
	err := db.QueryRow(`SELECT data FROM screenshots WHERE filename = ?`, filename).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(filename)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// marshalStrings encodes a string slice as nullable JSON.
func marshalStrings(s []string) (sql.NullString, error) {
	if len(s) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalStrings decodes nullable JSON into a string slice.
func unmarshalStrings(ns sql.NullString, dst *[]string) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), dst)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
