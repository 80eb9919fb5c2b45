package meetings

import (
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/pkg/sdk"
)

func toSDKMeeting(m *meeting.Meeting) sdk.Meeting {
	out := sdk.Meeting{
		ID:        m.ID,
		Title:     m.Title,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
	if m.Date != nil {
		out.Date = m.Date.Format(meeting.DateLayout)
	}
	return out
}

func toSDKParticipant(p meeting.Participant) sdk.Participant {
	return sdk.Participant{
		ID:        p.ID,
		MeetingID: p.MeetingID,
		Name:      p.Name,
		Role:      p.Role,
		Email:     p.Email,
		Avatar:    p.Avatar,
	}
}

func toSDKArtifact(a meeting.Artifact) sdk.Artifact {
	return sdk.Artifact{
		ID:                 a.ID,
		MeetingID:          a.MeetingID,
		Kind:               string(a.Kind),
		URL:                a.URL,
		FilePath:           a.FilePath,
		TranscriptText:     a.TranscriptText,
		TranscriptFailed:   a.TranscriptFailed,
		TranscriptAttempts: a.TranscriptAttempts,
		CreatedAt:          a.CreatedAt,
	}
}

func toSDKSummary(s meeting.Summary) sdk.Summary {
	return sdk.Summary{
		ID:        s.ID,
		MeetingID: s.MeetingID,
		Text:      s.Text,
		CreatedAt: s.CreatedAt,
	}
}

func toSDKDecision(d meeting.Decision) sdk.Decision {
	return sdk.Decision{
		ID:        d.ID,
		MeetingID: d.MeetingID,
		Text:      d.Text,
	}
}

func toSDKActionItem(item meeting.ActionItem) sdk.ActionItem {
	out := sdk.ActionItem{
		ID:        item.ID,
		MeetingID: item.MeetingID,
		Task:      item.Task,
		Owner:     item.Owner,
		Status:    string(item.Status),
	}
	if item.DueDate != nil {
		out.DueDate = item.DueDate.Format(meeting.DateLayout)
	}
	return out
}
