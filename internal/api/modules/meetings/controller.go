package meetings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethanbaker/minutes/internal/calendar"
	"github.com/ethanbaker/minutes/internal/processing"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcript"
	"github.com/ethanbaker/minutes/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Dispatcher starts and reports background processing runs
type Dispatcher interface {
	Dispatch(ctx context.Context, meetingID string) error
	Busy(ctx context.Context, meetingID string) (bool, error)
}

// Answerer answers questions about a meeting
type Answerer interface {
	Ask(ctx context.Context, meetingID, question string) (string, error)
	Transcript(ctx context.Context, meetingID string) (string, error)
}

// Speaker reads a meeting summary aloud
type Speaker interface {
	Speak(ctx context.Context, meetingID string) (io.ReadCloser, error)
}

// Controller holds the services behind the meetings routes
type Controller struct {
	store      *meeting.Store
	dispatcher Dispatcher
	answerer   Answerer
	speaker    Speaker
	uploadDir  string
}

// NewController creates the meetings controller. Uploaded files are stored
// under uploadDir and served from /uploads
func NewController(store *meeting.Store, dispatcher Dispatcher, answerer Answerer, speaker Speaker, uploadDir string) *Controller {
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	return &Controller{
		store:      store,
		dispatcher: dispatcher,
		answerer:   answerer,
		speaker:    speaker,
		uploadDir:  uploadDir,
	}
}

// fail writes an error envelope with a status derived from err
func fail(c *gin.Context, message string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, meeting.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, processing.ErrAlreadyProcessing):
		code = http.StatusConflict
	}

	c.JSON(sdk.NewErrorResponse(code, message, err).AsGinResponse())
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, message, err).AsGinResponse())
}

// requireMeeting loads the meeting named in the path, writing the error
// response itself when it cannot
func (ctrl *Controller) requireMeeting(c *gin.Context) (*meeting.Meeting, bool) {
	m, err := ctrl.store.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Meeting not found", err)
		return nil, false
	}
	return m, true
}

/** Meetings */

// CreateMeeting handles POST requests to create a new meeting
func (ctrl *Controller) CreateMeeting(c *gin.Context) {
	var req sdk.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	date, err := time.Parse(meeting.DateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		badRequest(c, "Date must be formatted as YYYY-MM-DD", err)
		return
	}

	m := &meeting.Meeting{
		Title:     strings.TrimSpace(req.Title),
		Date:      &date,
		CreatedBy: req.CreatedBy,
	}
	if err := ctrl.store.CreateMeeting(c.Request.Context(), m); err != nil {
		fail(c, "Failed to create meeting", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Meeting created successfully", toSDKMeeting(m)).WithCode(http.StatusCreated).AsGinResponse())
}

// ListMeetings handles GET requests to list every meeting
func (ctrl *Controller) ListMeetings(c *gin.Context) {
	meetings, err := ctrl.store.ListMeetings(c.Request.Context())
	if err != nil {
		fail(c, "Failed to list meetings", err)
		return
	}

	out := make([]sdk.Meeting, 0, len(meetings))
	for i := range meetings {
		out = append(out, toSDKMeeting(&meetings[i]))
	}
	c.JSON(sdk.NewSuccessResponse("Meetings retrieved successfully", out).AsGinResponse())
}

// GetMeeting handles GET requests for a single meeting
func (ctrl *Controller) GetMeeting(c *gin.Context) {
	m, ok := ctrl.requireMeeting(c)
	if !ok {
		return
	}
	c.JSON(sdk.NewSuccessResponse("Meeting retrieved successfully", toSDKMeeting(m)).AsGinResponse())
}

// DeleteMeeting handles DELETE requests; every row of the meeting goes with it
func (ctrl *Controller) DeleteMeeting(c *gin.Context) {
	id := c.Param("id")
	if err := ctrl.store.DeleteMeeting(c.Request.Context(), id); err != nil {
		fail(c, "Failed to delete meeting", err)
		return
	}

	// Uploaded files are best effort
	os.RemoveAll(filepath.Join(ctrl.uploadDir, id))

	c.JSON(sdk.NewSuccess("Meeting deleted successfully").AsGinResponse())
}

/** Participants */

// AddParticipants handles POST requests with a list of participants
func (ctrl *Controller) AddParticipants(c *gin.Context) {
	var req []sdk.ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	participants := make([]meeting.Participant, 0, len(req))
	for _, p := range req {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			badRequest(c, "Every participant needs a name", nil)
			return
		}
		participants = append(participants, meeting.Participant{
			Name:   name,
			Role:   p.Role,
			Email:  p.Email,
			Avatar: p.Avatar,
		})
	}

	added, err := ctrl.store.AddParticipants(c.Request.Context(), c.Param("id"), participants)
	if err != nil {
		fail(c, "Failed to add participants", err)
		return
	}

	out := make([]sdk.Participant, 0, len(added))
	for _, p := range added {
		out = append(out, toSDKParticipant(p))
	}
	c.JSON(sdk.NewSuccessResponse("Participants added successfully", out).WithCode(http.StatusCreated).AsGinResponse())
}

// ListParticipants handles GET requests for a meeting's participants
func (ctrl *Controller) ListParticipants(c *gin.Context) {
	if _, ok := ctrl.requireMeeting(c); !ok {
		return
	}

	participants, err := ctrl.store.ListParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to list participants", err)
		return
	}

	out := make([]sdk.Participant, 0, len(participants))
	for _, p := range participants {
		out = append(out, toSDKParticipant(p))
	}
	c.JSON(sdk.NewSuccessResponse("Participants retrieved successfully", out).AsGinResponse())
}

/** Artifacts */

// AddTextArtifact handles POST requests with raw transcript text
func (ctrl *Controller) AddTextArtifact(c *gin.Context) {
	var req sdk.TextArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, "Text must not be empty", nil)
		return
	}

	a := &meeting.Artifact{
		MeetingID:      c.Param("id"),
		Kind:           meeting.KindText,
		TranscriptText: req.Text,
	}
	if err := ctrl.store.AddArtifact(c.Request.Context(), a); err != nil {
		fail(c, "Failed to add artifact", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Artifact added successfully", toSDKArtifact(*a)).WithCode(http.StatusCreated).AsGinResponse())
}

// AddAudioArtifact handles multipart uploads of meeting audio
func (ctrl *Controller) AddAudioArtifact(c *gin.Context) {
	ctrl.addFileArtifact(c, meeting.KindAudio)
}

// AddImageArtifact handles multipart uploads of whiteboard or slide images
func (ctrl *Controller) AddImageArtifact(c *gin.Context) {
	ctrl.addFileArtifact(c, meeting.KindImage)
}

func (ctrl *Controller) addFileArtifact(c *gin.Context, kind meeting.ArtifactKind) {
	m, ok := ctrl.requireMeeting(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "A file must be uploaded in the 'file' field", err)
		return
	}

	// Stored names are generated so uploads cannot escape the meeting directory
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dir := filepath.Join(ctrl.uploadDir, m.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fail(c, "Failed to store upload", err)
		return
	}

	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		fail(c, "Failed to store upload", err)
		return
	}

	a := &meeting.Artifact{
		MeetingID: m.ID,
		Kind:      kind,
		URL:       "/uploads/" + m.ID + "/" + name,
		FilePath:  path,
	}
	if err := ctrl.store.AddArtifact(c.Request.Context(), a); err != nil {
		os.Remove(path)
		fail(c, "Failed to add artifact", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Artifact uploaded successfully", toSDKArtifact(*a)).WithCode(http.StatusCreated).AsGinResponse())
}

// ListArtifacts handles GET requests for a meeting's artifacts
func (ctrl *Controller) ListArtifacts(c *gin.Context) {
	if _, ok := ctrl.requireMeeting(c); !ok {
		return
	}

	artifacts, err := ctrl.store.ListArtifacts(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to list artifacts", err)
		return
	}

	out := make([]sdk.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, toSDKArtifact(a))
	}
	c.JSON(sdk.NewSuccessResponse("Artifacts retrieved successfully", out).AsGinResponse())
}

/** Summaries and decisions */

// AddSummary handles POST requests for a manually written summary
func (ctrl *Controller) AddSummary(c *gin.Context) {
	var req sdk.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	summary, err := ctrl.store.AddSummary(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		fail(c, "Failed to add summary", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Summary added successfully", toSDKSummary(*summary)).WithCode(http.StatusCreated).AsGinResponse())
}

// ListSummaries handles GET requests for a meeting's summaries
func (ctrl *Controller) ListSummaries(c *gin.Context) {
	if _, ok := ctrl.requireMeeting(c); !ok {
		return
	}

	summaries, err := ctrl.store.ListSummaries(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to list summaries", err)
		return
	}

	out := make([]sdk.Summary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSDKSummary(s))
	}
	c.JSON(sdk.NewSuccessResponse("Summaries retrieved successfully", out).AsGinResponse())
}

// AddDecision handles POST requests for a manually recorded decision
func (ctrl *Controller) AddDecision(c *gin.Context) {
	var req sdk.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	decision, err := ctrl.store.AddDecision(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		fail(c, "Failed to add decision", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Decision added successfully", toSDKDecision(*decision)).WithCode(http.StatusCreated).AsGinResponse())
}

// ListDecisions handles GET requests for a meeting's decisions
func (ctrl *Controller) ListDecisions(c *gin.Context) {
	if _, ok := ctrl.requireMeeting(c); !ok {
		return
	}

	decisions, err := ctrl.store.ListDecisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to list decisions", err)
		return
	}

	out := make([]sdk.Decision, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, toSDKDecision(d))
	}
	c.JSON(sdk.NewSuccessResponse("Decisions retrieved successfully", out).AsGinResponse())
}

/** Action items */

// AddActionItem handles POST requests for a manually created action item
func (ctrl *Controller) AddActionItem(c *gin.Context) {
	var req sdk.ActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	item := &meeting.ActionItem{
		MeetingID: c.Param("id"),
		Task:      strings.TrimSpace(req.Task),
		Owner:     strings.TrimSpace(req.Owner),
	}

	if due := strings.TrimSpace(req.DueDate); due != "" {
		d, err := time.Parse(meeting.DateLayout, due)
		if err != nil {
			badRequest(c, "Due date must be formatted as YYYY-MM-DD", err)
			return
		}
		item.DueDate = &d
	}

	if err := ctrl.store.AddActionItem(c.Request.Context(), item); err != nil {
		fail(c, "Failed to add action item", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Action item added successfully", toSDKActionItem(*item)).WithCode(http.StatusCreated).AsGinResponse())
}

// ListActionItems handles GET requests for a meeting's action items
func (ctrl *Controller) ListActionItems(c *gin.Context) {
	if _, ok := ctrl.requireMeeting(c); !ok {
		return
	}

	items, err := ctrl.store.ListActionItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "Failed to list action items", err)
		return
	}

	out := make([]sdk.ActionItem, 0, len(items))
	for _, item := range items {
		out = append(out, toSDKActionItem(item))
	}
	c.JSON(sdk.NewSuccessResponse("Action items retrieved successfully", out).AsGinResponse())
}

// UpdateActionItem handles PATCH requests that change an item's status
func (ctrl *Controller) UpdateActionItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid action item id", err)
		return
	}

	var req sdk.UpdateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}

	status, err := meeting.ParseActionStatus(req.Status)
	if err != nil {
		badRequest(c, "Status must be one of pending, open or done", err)
		return
	}

	item, err := ctrl.store.UpdateActionItemStatus(c.Request.Context(), c.Param("id"), uint(itemID), status)
	if err != nil {
		fail(c, "Failed to update action item", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Action item updated successfully", toSDKActionItem(*item)).AsGinResponse())
}

// ExportActionItems returns the action items as an iCalendar to-do feed
func (ctrl *Controller) ExportActionItems(c *gin.Context) {
	m, ok := ctrl.requireMeeting(c)
	if !ok {
		return
	}

	items, err := ctrl.store.ListActionItems(c.Request.Context(), m.ID)
	if err != nil {
		fail(c, "Failed to list action items", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=meeting_%s_action_items.ics", m.ID))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.ActionItems(m, items, time.Now())))
}

/** Processing */

// Process handles POST requests that start a background processing run
func (ctrl *Controller) Process(c *gin.Context) {
	m, ok := ctrl.requireMeeting(c)
	if !ok {
		return
	}

	if err := ctrl.dispatcher.Dispatch(c.Request.Context(), m.ID); err != nil {
		fail(c, "Could not start processing", err)
		return
	}

	resp := sdk.ProcessResponse{Status: "processing started", MeetingID: m.ID}
	c.JSON(sdk.NewSuccessResponse("Processing started", resp).WithCode(http.StatusAccepted).AsGinResponse())
}

// ProcessingStatus handles GET requests polling for an in-flight run
func (ctrl *Controller) ProcessingStatus(c *gin.Context) {
	m, ok := ctrl.requireMeeting(c)
	if !ok {
		return
	}

	busy, err := ctrl.dispatcher.Busy(c.Request.Context(), m.ID)
	if err != nil {
		fail(c, "Failed to get processing status", err)
		return
	}

	status := "idle"
	if busy {
		status = "processing"
	}
	c.JSON(sdk.NewSuccessResponse("Processing status retrieved", sdk.ProcessResponse{Status: status, MeetingID: m.ID}).AsGinResponse())
}

/** On-demand features */

// Chat handles POST requests with a question about the meeting
func (ctrl *Controller) Chat(c *gin.Context) {
	var req sdk.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request body", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(c, "Question is required", nil)
		return
	}

	answer, err := ctrl.answerer.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		fail(c, "Failed to answer question", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Question answered", sdk.ChatResponse{Question: req.Question, Answer: answer}).AsGinResponse())
}

// Avatar streams the spoken summary of a meeting as MP3
func (ctrl *Controller) Avatar(c *gin.Context) {
	id := c.Param("id")

	audio, err := ctrl.speaker.Speak(c.Request.Context(), id)
	if err != nil {
		fail(c, "Failed to generate avatar audio", err)
		return
	}
	defer audio.Close()

	c.DataFromReader(http.StatusOK, -1, "audio/mpeg", audio, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=meeting_%s_avatar.mp3", id),
		"Cache-Control":       "no-cache",
	})
}

// ActionFlow returns the speaker turns of the aggregated transcript
func (ctrl *Controller) ActionFlow(c *gin.Context) {
	id := c.Param("id")

	text, err := ctrl.answerer.Transcript(c.Request.Context(), id)
	if err != nil {
		fail(c, "Failed to load transcript", err)
		return
	}

	timeline := []sdk.TimelineEntry{}
	for i, turn := range transcript.Timeline(text) {
		timeline = append(timeline, sdk.TimelineEntry{
			ID:      fmt.Sprintf("%s-t-%d", id, i),
			Speaker: turn.Speaker,
			Text:    turn.Text,
		})
	}

	c.JSON(sdk.NewSuccessResponse("Action flow retrieved", sdk.ActionFlowResponse{Timeline: timeline}).AsGinResponse())
}
