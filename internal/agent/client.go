package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultRunTimeout = 20 * time.Minute

// Client communicates with the remote agent API over HTTP.
//
// The agent exposes two endpoints: session creation
// (POST /apps/{app}/users/{user}/sessions) and a run endpoint (POST /run)
// that replays the whole tool-calling conversation turn and returns the
// ordered event list. A single run may take many minutes because the agent
// performs its own sensor and device tool calls before answering.
type Client struct {
	baseURL    string
	appName    string
	userID     string
	httpClient *http.Client
}

// New creates a Client targeting the given agent base URL. runTimeout bounds
// each /run call; pass 0 for the default (20 minutes).
func New(baseURL, appName, userID string, runTimeout time.Duration) *Client {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appName: appName,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: runTimeout,
		},
	}
}

// StatusError is returned when the agent responds with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent: unexpected status %d", e.Code)
}

// SessionInvalid reports whether the status signals that the server-side
// session is gone or unusable. A 404 means the session id is unknown; 5xx
// responses are treated the same way because the agent restarts with empty
// in-memory session state.
func (e *StatusError) SessionInvalid() bool {
	return e.Code == http.StatusNotFound || e.Code >= 500
}

// createSessionResponse mirrors the JSON returned by the session endpoint.
// Some deployments return {"id": ...}, others a resource {"name": ".../id"}.
type createSessionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateSession asks the agent for a fresh conversation session and returns
// its identifier.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/apps/%s/users/%s/sessions", c.baseURL, c.appName, c.userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return "", fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var result createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding session response: %w", err)
	}

	id := result.ID
	if id == "" && result.Name != "" {
		// Resource-style response: take the last path segment.
		parts := strings.Split(result.Name, "/")
		id = parts[len(parts)-1]
	}
	if id == "" {
		return "", fmt.Errorf("session response contained no id")
	}
	return id, nil
}

// runRequest is the JSON body for POST /run.
type runRequest struct {
	AppName    string  `json:"app_name"`
	UserID     string  `json:"user_id"`
	SessionID  string  `json:"session_id"`
	NewMessage message `json:"new_message"`
}

type message struct {
	Parts []Part `json:"parts"`
}

// Run sends one user message on the given session and returns the agent's
// response events in order. Non-200 responses surface as *StatusError so the
// caller can distinguish session invalidation from other failures.
func (c *Client) Run(ctx context.Context, sessionID, text string) ([]Event, error) {
	body, err := json.Marshal(runRequest{
		AppName:    c.appName,
		UserID:     c.userID,
		SessionID:  sessionID,
		NewMessage: message{Parts: []Part{{Text: text}}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("run request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding run response: %w", err)
	}
	return events, nil
}
