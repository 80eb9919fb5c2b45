package meeting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the wire and prompt format for calendar dates
const DateLayout = "2006-01-02"

// DefaultAvatar is used for participants created without an avatar
const DefaultAvatar = "https://www.gravatar.com/avatar/?d=mp&s=200"

// Unassigned is the owner of action items nobody took
const Unassigned = "Unassigned"

// ArtifactKind is the type of an uploaded meeting input
type ArtifactKind string

const (
	KindAudio ArtifactKind = "audio"
	KindImage ArtifactKind = "image"
	KindText  ArtifactKind = "text"
)

// ActionStatus is the lifecycle state of an action item
type ActionStatus string

const (
	StatusPending ActionStatus = "pending"
	StatusOpen    ActionStatus = "open"
	StatusDone    ActionStatus = "done"
)

// ParseActionStatus validates a status string
func ParseActionStatus(s string) (ActionStatus, error) {
	switch status := ActionStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case StatusPending, StatusOpen, StatusDone:
		return status, nil
	default:
		return "", fmt.Errorf("invalid action item status %q", s)
	}
}

// Meeting is the root of all meeting data; every other row belongs to one meeting
type Meeting struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	Title     string     `json:"title" gorm:"column:title;not null;size:255"`
	Date      *time.Time `json:"date" gorm:"column:date;type:date"`
	CreatedBy string     `json:"created_by" gorm:"column:created_by;size:255"`

	Participants []Participant `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Artifacts    []Artifact    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Summaries    []Summary     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Decisions    []Decision    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ActionItems  []ActionItem  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for GORM
func (Meeting) TableName() string {
	return "meetings"
}

// BeforeCreate assigns a UUID to new meetings
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Participant is a person attending a meeting
type Participant struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MeetingID string `json:"meeting_id" gorm:"column:meeting_id;size:36;not null;index"`

	Name   string `json:"name" gorm:"column:name;not null;size:255"`
	Role   string `json:"role" gorm:"column:role;size:255"`
	Email  string `json:"email" gorm:"column:email;size:255"`
	Avatar string `json:"avatar" gorm:"column:avatar;size:500"`
}

// TableName sets the table name for GORM
func (Participant) TableName() string {
	return "participants"
}

// Artifact is one uploaded input. Text artifacts carry their transcript from
// the start; audio and image artifacts get one from the transcriber
type Artifact struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	MeetingID string    `json:"meeting_id" gorm:"column:meeting_id;size:36;not null;index"`

	Kind     ArtifactKind `json:"kind" gorm:"column:kind;not null;size:16"`
	URL      string       `json:"url" gorm:"column:url;size:500"`
	FilePath string       `json:"file_path" gorm:"column:file_path;size:500"`

	TranscriptText     string `json:"transcript_text" gorm:"column:transcript_text;type:text"`
	TranscriptFailed   bool   `json:"transcript_failed" gorm:"column:transcript_failed;default:false"`
	TranscriptAttempts int    `json:"transcript_attempts" gorm:"column:transcript_attempts;default:0"`
}

// TableName sets the table name for GORM
func (Artifact) TableName() string {
	return "artifacts"
}

// HasTranscript reports whether the artifact holds a successful transcript
func (a *Artifact) HasTranscript() bool {
	return a.TranscriptText != "" && !a.TranscriptFailed
}

// Summary is a free-text overview of a meeting
type Summary struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	MeetingID string    `json:"meeting_id" gorm:"column:meeting_id;size:36;not null;index"`

	Text string `json:"text" gorm:"column:text;type:text;not null"`
}

// TableName sets the table name for GORM
func (Summary) TableName() string {
	return "summaries"
}

// Decision is one decision taken in a meeting
type Decision struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MeetingID string `json:"meeting_id" gorm:"column:meeting_id;size:36;not null;index"`

	Text string `json:"text" gorm:"column:text;type:text;not null"`
}

// TableName sets the table name for GORM
func (Decision) TableName() string {
	return "decisions"
}

// ActionItem is a follow-up task assigned in a meeting
type ActionItem struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MeetingID string `json:"meeting_id" gorm:"column:meeting_id;size:36;not null;index"`

	Task    string       `json:"task" gorm:"column:task;type:text;not null"`
	Owner   string       `json:"owner" gorm:"column:owner;size:255"`
	DueDate *time.Time   `json:"due_date" gorm:"column:due_date;type:date"`
	Status  ActionStatus `json:"status" gorm:"column:status;size:16;default:pending"`
}

// TableName sets the table name for GORM
func (ActionItem) TableName() string {
	return "action_items"
}

// Derived is the output of one extraction run, written by ReplaceDerived
type Derived struct {
	Summary     string
	Decisions   []string
	ActionItems []ActionItem
}
