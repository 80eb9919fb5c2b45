package meetings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethanbaker/minutes/internal/processing"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testKey = "secret"

type fakeDispatcher struct {
	mu   sync.Mutex
	ids  []string
	err  error
	busy bool
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, meetingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, meetingID)
	return nil
}

func (d *fakeDispatcher) Busy(ctx context.Context, meetingID string) (bool, error) {
	return d.busy, nil
}

type fakeAnswerer struct {
	transcript string
}

func (a *fakeAnswerer) Ask(ctx context.Context, meetingID, question string) (string, error) {
	return "answer to " + question, nil
}

func (a *fakeAnswerer) Transcript(ctx context.Context, meetingID string) (string, error) {
	return a.transcript, nil
}

type fakeSpeaker struct{}

func (fakeSpeaker) Speak(ctx context.Context, meetingID string) (io.ReadCloser, error) {
	if meetingID == "missing" {
		return nil, meeting.ErrNotFound
	}
	return io.NopCloser(strings.NewReader("ID3-audio")), nil
}

type fixture struct {
	store      *meeting.Store
	dispatcher *fakeDispatcher
	answerer   *fakeAnswerer
	uploads    string
	server     *httptest.Server
	client     *sdk.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := meeting.NewStore(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:      store,
		dispatcher: &fakeDispatcher{},
		answerer:   &fakeAnswerer{},
		uploads:    t.TempDir(),
	}

	engine := gin.New()
	RegisterRoutes(engine.Group("/api"), NewController(store, f.dispatcher, f.answerer, fakeSpeaker{}, f.uploads), testKey)

	f.server = httptest.NewServer(engine)
	t.Cleanup(f.server.Close)
	f.client = sdk.NewClient(f.server.URL, testKey)

	return f
}

func (f *fixture) createMeeting(t *testing.T) *sdk.Meeting {
	t.Helper()
	m, err := f.client.CreateMeeting(context.Background(), &sdk.CreateMeetingRequest{
		Title:     "Sprint review",
		Date:      "2025-03-14",
		CreatedBy: "alice",
	})
	require.NoError(t, err)
	return m
}

// do sends a raw request with the api key set
func (f *fixture) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("X-API-KEY", testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](body []byte) (T, error) {
	var out sdk.ApiResponse[T]
	err := json.Unmarshal(body, &out)
	return out.Data, err
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var se *sdk.StatusError
	require.ErrorAs(t, err, &se)
	return se.Code
}

func TestMeetingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createMeeting(t)
	assert.Equal(t, "Sprint review", created.Title)
	assert.Equal(t, "2025-03-14", created.Date)

	got, err := f.client.GetMeeting(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alice", got.CreatedBy)

	resp := f.do(t, http.MethodDelete, "/api/meetings/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = f.client.GetMeeting(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))
}

func TestCreateMeetingValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/meetings", "application/json", strings.NewReader(`{"title":"x","date":"14/03/2025"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/meetings", "application/json", strings.NewReader(`{"date":"2025-03-14"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIKeyRequired(t *testing.T) {
	f := newFixture(t)

	_, err := sdk.NewClient(f.server.URL, "wrong").CreateMeeting(context.Background(), &sdk.CreateMeetingRequest{Title: "x", Date: "2025-03-14"})
	require.Error(t, err)
	assert.NotEqual(t, http.StatusOK, statusCode(t, err))
}

func TestParticipantsAndTextArtifacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)

	added, err := f.client.AddParticipants(ctx, m.ID, []sdk.ParticipantRequest{
		{Name: "Alice", Role: "PM"},
		{Name: "Bob"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, meeting.DefaultAvatar, added[1].Avatar)

	artifact, err := f.client.AddTextArtifact(ctx, m.ID, "Alice: ship it")
	require.NoError(t, err)
	assert.Equal(t, "text", artifact.Kind)
	assert.Equal(t, "Alice: ship it", artifact.TranscriptText)

	_, err = f.client.AddParticipants(ctx, "missing", []sdk.ParticipantRequest{{Name: "Eve"}})
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	resp := f.do(t, http.MethodPost, "/api/meetings/"+m.ID+"/participants", "application/json", strings.NewReader(`[{"name":"  "}]`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func upload(t *testing.T, f *fixture, path, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return f.do(t, http.MethodPost, path, w.FormDataContentType(), &buf)
}

func TestFileUploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)

	resp := upload(t, f, "/api/meetings/"+m.ID+"/artifacts/audio", "standup.WAV", []byte("RIFF"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = upload(t, f, "/api/meetings/"+m.ID+"/artifacts/image", "../../board.png", []byte("PNG"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	artifacts, err := f.store.ListArtifacts(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	assert.Equal(t, meeting.KindAudio, artifacts[0].Kind)
	assert.True(t, strings.HasPrefix(artifacts[0].URL, "/uploads/"+m.ID+"/"))
	assert.Equal(t, ".wav", filepath.Ext(artifacts[0].FilePath))
	assert.Equal(t, meeting.KindImage, artifacts[1].Kind)

	for _, a := range artifacts {
		assert.Equal(t, filepath.Join(f.uploads, m.ID), filepath.Dir(a.FilePath))
		_, err := os.Stat(a.FilePath)
		assert.NoError(t, err)
	}

	resp = upload(t, f, "/api/meetings/missing/artifacts/audio", "a.wav", []byte("RIFF"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/meetings/"+m.ID+"/artifacts/audio", "application/json", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Deleting the meeting removes its uploads
	f.do(t, http.MethodDelete, "/api/meetings/"+m.ID, "", nil)
	_, err = os.Stat(filepath.Join(f.uploads, m.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestManualRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)
	base := "/api/meetings/" + m.ID

	resp := f.do(t, http.MethodPost, base+"/summary", "application/json", strings.NewReader(`{"text":"We shipped."}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodPost, base+"/decisions", "application/json", strings.NewReader(`{"text":"Ship Friday"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodPost, base+"/action-items", "application/json", strings.NewReader(`{"task":"Write notes","due_date":"2025-03-21"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodPost, base+"/action-items", "application/json", strings.NewReader(`{"task":"Bad","due_date":"soon"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	summaries, err := f.client.ListSummaries(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "We shipped.", summaries[0].Text)

	decisions, err := f.client.ListDecisions(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	items, err := f.client.ListActionItems(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, meeting.Unassigned, items[0].Owner)
	assert.Equal(t, "pending", items[0].Status)
	assert.Equal(t, "2025-03-21", items[0].DueDate)

	_, err = f.client.ListActionItems(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))
}

func TestUpdateActionItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)

	item := &meeting.ActionItem{MeetingID: m.ID, Task: "Book room", Owner: "Bob"}
	require.NoError(t, f.store.AddActionItem(ctx, item))
	path := "/api/meetings/" + m.ID + "/action-items/"

	resp := f.do(t, http.MethodPatch, path+"1", "application/json", strings.NewReader(`{"status":"DONE"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items, err := f.store.ListActionItems(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusDone, items[0].Status)

	resp = f.do(t, http.MethodPatch, path+"1", "application/json", strings.NewReader(`{"status":"archived"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, path+"abc", "application/json", strings.NewReader(`{"status":"done"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, path+"99", "application/json", strings.NewReader(`{"status":"done"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportActionItems(t *testing.T) {
	f := newFixture(t)
	m := f.createMeeting(t)
	require.NoError(t, f.store.AddActionItem(context.Background(), &meeting.ActionItem{MeetingID: m.ID, Task: "Send recap", Owner: "Alice"}))

	resp := f.do(t, http.MethodGet, "/api/meetings/"+m.ID+"/action-items/ical", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VTODO")
	assert.Contains(t, string(body), "Send recap")
}

func TestProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)

	resp, err := f.client.ProcessMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "processing started", resp.Status)
	assert.Equal(t, m.ID, resp.MeetingID)
	assert.Equal(t, []string{m.ID}, f.dispatcher.ids)

	_, err = f.client.ProcessMeeting(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	f.dispatcher.err = processing.ErrAlreadyProcessing
	_, err = f.client.ProcessMeeting(ctx, m.ID)
	assert.Equal(t, http.StatusConflict, statusCode(t, err))

	f.dispatcher.err = errors.New("boom")
	_, err = f.client.ProcessMeeting(ctx, m.ID)
	assert.Equal(t, http.StatusInternalServerError, statusCode(t, err))
}

func TestProcessingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMeeting(t)

	status, err := f.client.ProcessingStatus(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "idle", status.Status)

	f.dispatcher.busy = true
	status, err = f.client.ProcessingStatus(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "processing", status.Status)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	m := f.createMeeting(t)

	resp, err := f.client.Ask(context.Background(), m.ID, "When do we ship?")
	require.NoError(t, err)
	assert.Equal(t, "When do we ship?", resp.Question)
	assert.Equal(t, "answer to When do we ship?", resp.Answer)

	raw := f.do(t, http.MethodPost, "/api/meetings/"+m.ID+"/chat", "application/json", strings.NewReader(`{"question":"   "}`))
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestAvatar(t *testing.T) {
	f := newFixture(t)
	m := f.createMeeting(t)

	resp := f.do(t, http.MethodGet, "/api/meetings/"+m.ID+"/avatar", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "inline; filename=meeting_"+m.ID+"_avatar.mp3", resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(body))

	resp = f.do(t, http.MethodGet, "/api/meetings/missing/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActionFlow(t *testing.T) {
	f := newFixture(t)
	m := f.createMeeting(t)
	f.answerer.transcript = "Alice (PM): Let's start\nnoise\nBob: Sounds good"

	resp := f.do(t, http.MethodGet, "/api/meetings/"+m.ID+"/action-flow", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out, err := decode[sdk.ActionFlowResponse](body)
	require.NoError(t, err)
	require.Len(t, out.Timeline, 2)
	assert.Equal(t, sdk.TimelineEntry{ID: m.ID + "-t-0", Speaker: "Alice", Text: "Let's start"}, out.Timeline[0])
	assert.Equal(t, sdk.TimelineEntry{ID: m.ID + "-t-1", Speaker: "Bob", Text: "Sounds good"}, out.Timeline[1])
}
