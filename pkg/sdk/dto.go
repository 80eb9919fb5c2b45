package sdk

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a JSON string
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WithCode overrides the HTTP status code of a successful response
func (r ApiResponse[T]) WithCode(code int) ApiResponse[T] {
	r.Code = code
	return r
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope. Errors are flattened to their
// message so they survive JSON encoding
func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	if e, ok := err.(error); ok && e != nil {
		err = e.Error()
	}

	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Requests */

// CreateMeetingRequest represents the request body for creating a meeting
type CreateMeetingRequest struct {
	Title     string `json:"title" binding:"required"`
	Date      string `json:"date" binding:"required"` // YYYY-MM-DD
	CreatedBy string `json:"created_by"`
}

// ParticipantRequest represents one participant in an add-participants request
type ParticipantRequest struct {
	Name   string `json:"name" binding:"required"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// TextArtifactRequest represents the request body for a raw text artifact
type TextArtifactRequest struct {
	Text string `json:"text" binding:"required"`
}

// SummaryRequest represents a manually added summary
type SummaryRequest struct {
	Text string `json:"text" binding:"required"`
}

// DecisionRequest represents a manually added decision
type DecisionRequest struct {
	Text string `json:"text" binding:"required"`
}

// ActionItemRequest represents a manually added action item
type ActionItemRequest struct {
	Task    string `json:"task" binding:"required"`
	Owner   string `json:"owner"`
	DueDate string `json:"due_date"` // YYYY-MM-DD, optional
}

// UpdateActionItemRequest changes the status of an action item
type UpdateActionItemRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChatRequest represents a question about a meeting
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

/** Responses */

// Meeting represents a meeting in API responses
type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant represents a meeting participant
type Participant struct {
	ID        uint   `json:"id"`
	MeetingID string `json:"meeting_id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Artifact represents an uploaded meeting input
type Artifact struct {
	ID                 uint      `json:"id"`
	MeetingID          string    `json:"meeting_id"`
	Kind               string    `json:"kind"`
	URL                string    `json:"url,omitempty"`
	FilePath           string    `json:"file_path,omitempty"`
	TranscriptText     string    `json:"transcript_text,omitempty"`
	TranscriptFailed   bool      `json:"transcript_failed"`
	TranscriptAttempts int       `json:"transcript_attempts"`
	CreatedAt          time.Time `json:"created_at"`
}

// Summary represents a meeting summary
type Summary struct {
	ID        uint      `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision represents a decision made in a meeting
type Decision struct {
	ID        uint   `json:"id"`
	MeetingID string `json:"meeting_id"`
	Text      string `json:"text"`
}

// ActionItem represents a follow-up task from a meeting
type ActionItem struct {
	ID        uint   `json:"id"`
	MeetingID string `json:"meeting_id"`
	Task      string `json:"task"`
	Owner     string `json:"owner"`
	DueDate   string `json:"due_date,omitempty"`
	Status    string `json:"status"`
}

// ProcessResponse is returned when a processing run is requested or polled
type ProcessResponse struct {
	Status    string `json:"status"`
	MeetingID string `json:"meeting_id"`
}

// ChatResponse carries the answer to a ChatRequest
type ChatResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TimelineEntry is one speaker turn parsed from the aggregated transcript
type TimelineEntry struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ActionFlowResponse lists the speaker turns of a meeting
type ActionFlowResponse struct {
	Timeline []TimelineEntry `json:"timeline"`
}
