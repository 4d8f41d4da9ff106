package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"scipedia/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrAttachmentNotFound means no attachment array on the record
	// referenced the given url.
	ErrAttachmentNotFound = errors.New("attachment url not found on record")
)

// pullSQL rewrites all four kind arrays in a single UPDATE, dropping every
// entry whose url matches. The WHERE guard uses jsonb containment so
// RowsAffected==0 distinguishes "nothing referenced this url" from a
// matched-but-unchanged update.
const pullSQLTemplate = `
UPDATE %[1]s SET
  image = (SELECT COALESCE(jsonb_agg(e), '[]'::jsonb) FROM jsonb_array_elements(image) e WHERE e->>'url' <> @url),
  video = (SELECT COALESCE(jsonb_agg(e), '[]'::jsonb) FROM jsonb_array_elements(video) e WHERE e->>'url' <> @url),
  audio = (SELECT COALESCE(jsonb_agg(e), '[]'::jsonb) FROM jsonb_array_elements(audio) e WHERE e->>'url' <> @url),
  pdf   = (SELECT COALESCE(jsonb_agg(e), '[]'::jsonb) FROM jsonb_array_elements(pdf) e WHERE e->>'url' <> @url),
  updated_at = now()
WHERE id = @id AND (image @> @match::jsonb OR video @> @match::jsonb OR audio @> @match::jsonb OR pdf @> @match::jsonb)
`

// urlMatchJSON builds the containment probe `[{"url": "..."}]` for a url.
func urlMatchJSON(url string) string {
	b, _ := json.Marshal([]map[string]string{{"url": url}})
	return string(b)
}

// pushAttachment appends one attachment entry to the kind's array on the row
// matched by keyColumn=keyValue. The append is a single atomic UPDATE, which
// is what makes concurrent appends commutative.
func pushAttachment(db *gorm.DB, model interface{}, keyColumn, keyValue string, kind models.FileKind, att models.Attachment) (int64, error) {
	entry, err := json.Marshal([]models.Attachment{att})
	if err != nil {
		return 0, err
	}

	col := kind.Column()
	expr := fmt.Sprintf("COALESCE(%s, '[]'::jsonb) || ?::jsonb", col)

	result := db.Model(model).
		Where(keyColumn+" = ?", keyValue).
		Update(col, gorm.Expr(expr, string(entry)))
	return result.RowsAffected, result.Error
}

// pullAttachmentByURL removes every entry matching url from all four arrays
// on the record. Returns ErrAttachmentNotFound when no array referenced it.
func pullAttachmentByURL(db *gorm.DB, table, id, url string) error {
	result := db.Exec(fmt.Sprintf(pullSQLTemplate, table),
		map[string]interface{}{"url": url, "id": id, "match": urlMatchJSON(url)})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttachmentNotFound
	}
	return nil
}

// urlReferenced reports whether any row of the model references the url in
// one of its attachment arrays.
func urlReferenced(db *gorm.DB, model interface{}, url string) (bool, error) {
	match := urlMatchJSON(url)
	var count int64
	err := db.Model(model).
		Where("image @> ?::jsonb OR video @> ?::jsonb OR audio @> ?::jsonb OR pdf @> ?::jsonb",
			match, match, match, match).
		Count(&count).Error
	return count > 0, err
}
