package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// Client wraps calls to the meetings backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// CreateMeeting creates a new meeting
func (c *Client) CreateMeeting(ctx context.Context, req *CreateMeetingRequest) (*Meeting, error) {
	var out ApiResponse[Meeting]
	if err := c.doJSON(ctx, http.MethodPost, "/api/meetings", req, &out); err != nil {
		return nil, err
	}

	if out.Data.ID == "" {
		return nil, fmt.Errorf("no id returned")
	}

	return &out.Data, nil
}

// GetMeeting fetches a meeting by id
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	var out ApiResponse[Meeting]
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, ""), nil, &out); err != nil {
		return nil, err
	}

	if err := checkStatus(out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// AddParticipants adds participants to a meeting
func (c *Client) AddParticipants(ctx context.Context, meetingID string, req []ParticipantRequest) ([]Participant, error) {
	var out ApiResponse[[]Participant]
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "/participants"), req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AddTextArtifact uploads raw text as a meeting artifact
func (c *Client) AddTextArtifact(ctx context.Context, meetingID, text string) (*Artifact, error) {
	var out ApiResponse[Artifact]
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "/artifacts/text"), &TextArtifactRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ProcessMeeting starts a background processing run
func (c *Client) ProcessMeeting(ctx context.Context, meetingID string) (*ProcessResponse, error) {
	var out ApiResponse[ProcessResponse]
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "/process"), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ProcessingStatus reports whether a processing run is in flight
func (c *Client) ProcessingStatus(ctx context.Context, meetingID string) (*ProcessResponse, error) {
	var out ApiResponse[ProcessResponse]
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "/process"), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListSummaries returns the summaries of a meeting
func (c *Client) ListSummaries(ctx context.Context, meetingID string) ([]Summary, error) {
	var out ApiResponse[[]Summary]
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "/summary"), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListDecisions returns the decisions of a meeting
func (c *Client) ListDecisions(ctx context.Context, meetingID string) ([]Decision, error) {
	var out ApiResponse[[]Decision]
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "/decisions"), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListActionItems returns the action items of a meeting
func (c *Client) ListActionItems(ctx context.Context, meetingID string) ([]ActionItem, error) {
	var out ApiResponse[[]ActionItem]
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "/action-items"), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Ask asks a question about a meeting's transcript
func (c *Client) Ask(ctx context.Context, meetingID, question string) (*ChatResponse, error) {
	var out ApiResponse[ChatResponse]
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "/chat"), &ChatRequest{Question: question}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func meetingPath(meetingID, suffix string) string {
	return "/api/meetings/" + url.PathEscape(meetingID) + suffix
}

// checkStatus converts a non-success envelope into an error
func checkStatus[T any](out ApiResponse[T]) error {
	switch out.Status {
	case api_types.StatusFail:
		return fmt.Errorf("request failed: %s", out.Message)
	case api_types.StatusError:
		return fmt.Errorf("request error (%s): %v", out.Message, out.Error)
	}
	return nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("[BACKEND]: backend '%s %s' failed: %d: %s", e.Method, e.Path, e.Code, e.Body)
}
