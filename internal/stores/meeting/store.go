package meeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a meeting or one of its rows does not exist
var ErrNotFound = errors.New("not found")

// Store handles meeting persistence using GORM
type Store struct {
	db *gorm.DB
}

// Dialector picks the GORM dialector for a driver name. An empty driver means
// MySQL when a DSN is given and a local SQLite file otherwise
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "sqlite", "sqlite3":
		if dsn == "" {
			dsn = "minutes.db"
		}
		return sqlite.Open(dsn), nil
	case "":
		if dsn != "" {
			return mysql.Open(dsn), nil
		}
		log.Printf("[STORE]: Warning, no database configured, using local sqlite file minutes.db")
		return sqlite.Open("minutes.db"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewStore opens a database connection and migrates the meeting tables
func NewStore(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only tolerates a single writer
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto-migrate tables
	if err := db.AutoMigrate(&Meeting{}, &Participant{}, &Artifact{}, &Summary{}, &Decision{}, &ActionItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

/** Meetings */

// CreateMeeting inserts a new meeting
func (s *Store) CreateMeeting(ctx context.Context, m *Meeting) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// ListMeetings returns every meeting, oldest first
func (s *Store) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var meetings []Meeting
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// GetMeeting retrieves a meeting by ID
func (s *Store) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	return getMeeting(s.db.WithContext(ctx), id)
}

func getMeeting(db *gorm.DB, id string) (*Meeting, error) {
	var m Meeting
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("meeting %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &m, nil
}

// DeleteMeeting deletes a meeting and everything attached to it
func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, id); err != nil {
			return err
		}

		for _, child := range []any{&ActionItem{}, &Decision{}, &Summary{}, &Artifact{}, &Participant{}} {
			if err := tx.Where("meeting_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to delete meeting rows: %w", err)
			}
		}

		if err := tx.Where("id = ?", id).Delete(&Meeting{}).Error; err != nil {
			return fmt.Errorf("failed to delete meeting: %w", err)
		}
		return nil
	})
}

/** Participants */

// AddParticipants attaches participants to an existing meeting
func (s *Store) AddParticipants(ctx context.Context, meetingID string, participants []Participant) ([]Participant, error) {
	if len(participants) == 0 {
		return []Participant{}, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, meetingID); err != nil {
			return err
		}

		for i := range participants {
			participants[i].ID = 0
			participants[i].MeetingID = meetingID
			if participants[i].Avatar == "" {
				participants[i].Avatar = DefaultAvatar
			}
		}

		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("failed to add participants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return participants, nil
}

// ListParticipants returns the participants of a meeting in insertion order
func (s *Store) ListParticipants(ctx context.Context, meetingID string) ([]Participant, error) {
	var participants []Participant
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id ASC").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// ParticipantNames returns the participant names of a meeting in insertion order
func (s *Store) ParticipantNames(ctx context.Context, meetingID string) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&Participant{}).Where("meeting_id = ?", meetingID).Order("id ASC").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list participant names: %w", err)
	}
	return names, nil
}

/** Artifacts */

// AddArtifact stores a new artifact on an existing meeting
func (s *Store) AddArtifact(ctx context.Context, a *Artifact) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, a.MeetingID); err != nil {
			return err
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("failed to add artifact: %w", err)
		}
		return nil
	})
}

// ListArtifacts returns the artifacts of a meeting in upload order
func (s *Store) ListArtifacts(ctx context.Context, meetingID string) ([]Artifact, error) {
	var artifacts []Artifact
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id ASC").Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// UpdateTranscript records the outcome of one transcription attempt
func (s *Store) UpdateTranscript(ctx context.Context, artifactID uint, text string, failed bool) error {
	result := s.db.WithContext(ctx).Model(&Artifact{}).Where("id = ?", artifactID).Updates(map[string]any{
		"transcript_text":     text,
		"transcript_failed":   failed,
		"transcript_attempts": gorm.Expr("transcript_attempts + 1"),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update transcript: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("artifact %d: %w", artifactID, ErrNotFound)
	}
	return nil
}

// MeetingsWithRetryableTranscripts lists meetings holding failed transcripts
// that have been attempted fewer than maxAttempts times
func (s *Store) MeetingsWithRetryableTranscripts(ctx context.Context, maxAttempts int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Artifact{}).
		Where("transcript_failed = ? AND transcript_attempts < ?", true, maxAttempts).
		Distinct().Order("meeting_id ASC").Pluck("meeting_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable meetings: %w", err)
	}
	return ids, nil
}

/** Derived records */

// AddSummary stores a summary on an existing meeting
func (s *Store) AddSummary(ctx context.Context, meetingID, text string) (*Summary, error) {
	summary := &Summary{MeetingID: meetingID, Text: text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, meetingID); err != nil {
			return err
		}
		return tx.Create(summary).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add summary: %w", err)
	}
	return summary, nil
}

// ListSummaries returns the summaries of a meeting in insertion order
func (s *Store) ListSummaries(ctx context.Context, meetingID string) ([]Summary, error) {
	var summaries []Summary
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id ASC").Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return summaries, nil
}

// LatestSummary returns the most recently stored summary of a meeting
func (s *Store) LatestSummary(ctx context.Context, meetingID string) (*Summary, error) {
	var summary Summary
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id DESC").First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("summary for meeting %s: %w", meetingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &summary, nil
}

// AddDecision stores a decision on an existing meeting
func (s *Store) AddDecision(ctx context.Context, meetingID, text string) (*Decision, error) {
	decision := &Decision{MeetingID: meetingID, Text: text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, meetingID); err != nil {
			return err
		}
		return tx.Create(decision).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add decision: %w", err)
	}
	return decision, nil
}

// ListDecisions returns the decisions of a meeting in insertion order
func (s *Store) ListDecisions(ctx context.Context, meetingID string) ([]Decision, error) {
	var decisions []Decision
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id ASC").Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}

// AddActionItem stores an action item on an existing meeting. New items are
// always pending
func (s *Store) AddActionItem(ctx context.Context, item *ActionItem) error {
	item.ID = 0
	item.Status = StatusPending
	if item.Owner == "" {
		item.Owner = Unassigned
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, item.MeetingID); err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return fmt.Errorf("failed to add action item: %w", err)
	}
	return nil
}

// ListActionItems returns the action items of a meeting in insertion order
func (s *Store) ListActionItems(ctx context.Context, meetingID string) ([]ActionItem, error) {
	var items []ActionItem
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}
	return items, nil
}

// UpdateActionItemStatus changes the status of one action item
func (s *Store) UpdateActionItemStatus(ctx context.Context, meetingID string, itemID uint, status ActionStatus) (*ActionItem, error) {
	var item ActionItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ? AND id = ?", meetingID, itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("action item %d: %w", itemID, ErrNotFound)
			}
			return err
		}
		item.Status = status
		return tx.Model(&item).Update("status", status).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update action item: %w", err)
	}
	return &item, nil
}

// ReplaceDerived swaps a meeting's summaries, decisions and action items for a
// fresh extraction. Either every change lands or none does
func (s *Store) ReplaceDerived(ctx context.Context, meetingID string, d Derived) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getMeeting(tx, meetingID); err != nil {
			return err
		}

		// Drop the previous run's rows
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&Summary{}).Error; err != nil {
			return fmt.Errorf("failed to clear summaries: %w", err)
		}
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&Decision{}).Error; err != nil {
			return fmt.Errorf("failed to clear decisions: %w", err)
		}
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&ActionItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear action items: %w", err)
		}

		if err := tx.Create(&Summary{MeetingID: meetingID, Text: d.Summary}).Error; err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}

		if len(d.Decisions) > 0 {
			decisions := make([]Decision, 0, len(d.Decisions))
			for _, text := range d.Decisions {
				decisions = append(decisions, Decision{MeetingID: meetingID, Text: text})
			}
			if err := tx.Create(&decisions).Error; err != nil {
				return fmt.Errorf("failed to save decisions: %w", err)
			}
		}

		if len(d.ActionItems) > 0 {
			items := make([]ActionItem, 0, len(d.ActionItems))
			for _, item := range d.ActionItems {
				owner := item.Owner
				if owner == "" {
					owner = Unassigned
				}
				items = append(items, ActionItem{
					MeetingID: meetingID,
					Task:      item.Task,
					Owner:     owner,
					DueDate:   item.DueDate,
					Status:    StatusPending,
				})
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to save action items: %w", err)
			}
		}

		return nil
	})
}
