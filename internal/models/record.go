package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attachment is a stored file reference kept inside a record's kind array.
// Field names mirror the wire format: {name, url, fileId}.
type Attachment struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	FileID string `json:"fileId"`
}

// FileKind names one of the four attachment groups on a record.
type FileKind string

const (
	FileKindImage FileKind = "image"
	FileKindVideo FileKind = "video"
	FileKindAudio FileKind = "audio"
	FileKindPDF   FileKind = "pdf"
)

// FileKinds lists every valid kind, in the order the groups appear on a record.
var FileKinds = []FileKind{FileKindImage, FileKindVideo, FileKindAudio, FileKindPDF}

// ParseFileKind validates a client-supplied fileType value.
func ParseFileKind(s string) (FileKind, bool) {
	switch FileKind(s) {
	case FileKindImage, FileKindVideo, FileKindAudio, FileKindPDF:
		return FileKind(s), true
	}
	return "", false
}

// Column returns the JSONB column holding this kind's attachment array.
// Columns are named after the document keys so the stored document and the
// wire document stay aligned.
func (k FileKind) Column() string {
	return string(k)
}

// RecordBase is the document-style core shared by users and agents: an opaque
// uuid id, a verbatim field bag, and one attachment array per kind.
type RecordBase struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"_id"`
	CreatedAt time.Time `gorm:"default:now()" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`

	Fields datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"-"`

	Images datatypes.JSONSlice[Attachment] `gorm:"column:image;type:jsonb;not null;default:'[]'" json:"image"`
	Videos datatypes.JSONSlice[Attachment] `gorm:"column:video;type:jsonb;not null;default:'[]'" json:"video"`
	Audios datatypes.JSONSlice[Attachment] `gorm:"column:audio;type:jsonb;not null;default:'[]'" json:"audio"`
	PDFs   datatypes.JSONSlice[Attachment] `gorm:"column:pdf;type:jsonb;not null;default:'[]'" json:"pdf"`
}

// Group returns the attachment array for a kind.
func (r *RecordBase) Group(kind FileKind) []Attachment {
	switch kind {
	case FileKindImage:
		return r.Images
	case FileKindVideo:
		return r.Videos
	case FileKindAudio:
		return r.Audios
	case FileKindPDF:
		return r.PDFs
	}
	return nil
}

// Document rebuilds the record's document form: the field bag merged at top
// level, `_id`, and the four kind arrays (always present, never null).
func (r *RecordBase) Document() map[string]any {
	doc := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc["_id"] = r.ID
	for _, kind := range FileKinds {
		group := r.Group(kind)
		if group == nil {
			group = []Attachment{}
		}
		doc[string(kind)] = group
	}
	return doc
}

// User is a user record. Email is lifted out of the field bag into its own
// unique column so lookups and the uniqueness constraint stay in SQL.
type User struct {
	RecordBase `gorm:"embedded"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
}

func (User) TableName() string { return "users" }

// Document includes the lifted email even when the bag omits it.
func (u *User) Document() map[string]any {
	doc := u.RecordBase.Document()
	if _, ok := doc["email"]; !ok && u.Email != "" {
		doc["email"] = u.Email
	}
	return doc
}

// Agent is an agent record. AgentName is lifted for the list filter's ILIKE.
type Agent struct {
	RecordBase `gorm:"embedded"`
	AgentName  string `gorm:"index" json:"agentName"`
}

func (Agent) TableName() string { return "agents" }

func (a *Agent) Document() map[string]any {
	doc := a.RecordBase.Document()
	if _, ok := doc["agentName"]; !ok && a.AgentName != "" {
		doc["agentName"] = a.AgentName
	}
	return doc
}
