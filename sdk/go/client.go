package stakeboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Stakeboard HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type Person struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Avatar     string   `json:"avatar"`
	Role       string   `json:"role"`
	Company    string   `json:"company"`
	PersonType []string `json:"person_type"`
	CreatedAt  string   `json:"created_at"`
}

type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	StakeholderIDs []string `json:"stakeholder_ids"`
	ExecutorIDs    []string `json:"executor_ids"`
	RequirementIDs []string `json:"requirement_ids"`
	DueDate        string   `json:"due_date,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type Requirement struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	StakeholderID string `json:"stakeholder_id"`
	Notes         string `json:"notes"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Activity struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	EntityTitle string `json:"entity_title"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type State struct {
	People           []Person      `json:"people"`
	Tasks            []Task        `json:"tasks"`
	Requirements     []Requirement `json:"requirements"`
	Activities       []Activity    `json:"activities"`
	ActiveView       string        `json:"active_view"`
	SelectedPersonID string        `json:"selected_person_id,omitempty"`
	SelectedTaskID   string        `json:"selected_task_id,omitempty"`
}

// ActionResult is the reply to a dispatched action envelope.
type ActionResult struct {
	Type    string `json:"type"`
	Changed bool   `json:"changed"`
	State   State  `json:"state"`
}

// APIError wraps non-2xx responses. Code and Message are filled from the
// error envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// State fetches the whole state tree.
func (c *Client) State(ctx context.Context) (State, error) {
	var resp State
	err := c.do(ctx, http.MethodGet, "state", nil, &resp)
	return resp, err
}

// LoadState replaces the state tree.
func (c *Client) LoadState(ctx context.Context, s State) (State, error) {
	var resp State
	err := c.do(ctx, http.MethodPut, "state", s, &resp)
	return resp, err
}

// ResetState restores the sample dataset.
func (c *Client) ResetState(ctx context.Context) (State, error) {
	var resp State
	err := c.do(ctx, http.MethodPost, "state/reset", nil, &resp)
	return resp, err
}

// Dispatch posts a raw action envelope.
func (c *Client) Dispatch(ctx context.Context, actionType string, payload map[string]any) (ActionResult, error) {
	body := map[string]any{"type": actionType}
	if payload != nil {
		body["payload"] = payload
	}
	var resp ActionResult
	err := c.do(ctx, http.MethodPost, "actions", body, &resp)
	return resp, err
}

// People lists people, optionally filtered by role.
func (c *Client) People(ctx context.Context, role string) ([]Person, error) {
	var resp struct {
		Items []Person `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("people", url.Values{"role": {role}}), nil, &resp)
	return resp.Items, err
}

// CreatePerson adds a person with at least one role.
func (c *Client) CreatePerson(ctx context.Context, p Person) (Person, error) {
	body := map[string]any{
		"name":        p.Name,
		"email":       p.Email,
		"avatar":      p.Avatar,
		"role":        p.Role,
		"company":     p.Company,
		"person_type": p.PersonType,
	}
	var resp Person
	err := c.do(ctx, http.MethodPost, "people", body, &resp)
	return resp, err
}

// DeletePerson removes a person and everything they own.
func (c *Client) DeletePerson(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "people/"+url.PathEscape(id), nil, nil)
}

// Tasks lists tasks, optionally in one status column.
func (c *Client) Tasks(ctx context.Context, status string) ([]Task, error) {
	var resp struct {
		Items []Task `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("tasks", url.Values{"status": {status}}), nil, &resp)
	return resp.Items, err
}

// CreateTask creates a task. Empty status and priority take server defaults.
func (c *Client) CreateTask(ctx context.Context, t Task) (Task, error) {
	body := map[string]any{"title": t.Title}
	if t.Description != "" {
		body["description"] = t.Description
	}
	if t.Status != "" {
		body["status"] = t.Status
	}
	if t.Priority != "" {
		body["priority"] = t.Priority
	}
	if len(t.StakeholderIDs) > 0 {
		body["stakeholder_ids"] = t.StakeholderIDs
	}
	if len(t.ExecutorIDs) > 0 {
		body["executor_ids"] = t.ExecutorIDs
	}
	if len(t.RequirementIDs) > 0 {
		body["requirement_ids"] = t.RequirementIDs
	}
	if t.DueDate != "" {
		body["due_date"] = t.DueDate
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// UpdateTask merges the given fields into a task.
func (c *Client) UpdateTask(ctx context.Context, id string, fields map[string]any) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

// MoveTask changes a task's board column.
func (c *Client) MoveTask(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/move", map[string]any{"status": status}, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// Requirements lists requirements, optionally for one stakeholder.
func (c *Client) Requirements(ctx context.Context, stakeholderID string) ([]Requirement, error) {
	var resp struct {
		Items []Requirement `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("requirements", url.Values{"stakeholder_id": {stakeholderID}}), nil, &resp)
	return resp.Items, err
}

// CreateRequirement records a requirement owned by a stakeholder.
func (c *Client) CreateRequirement(ctx context.Context, r Requirement) (Requirement, error) {
	body := map[string]any{
		"title":          r.Title,
		"stakeholder_id": r.StakeholderID,
	}
	if r.Description != "" {
		body["description"] = r.Description
	}
	if r.Status != "" {
		body["status"] = r.Status
	}
	if r.Priority != "" {
		body["priority"] = r.Priority
	}
	if r.Notes != "" {
		body["notes"] = r.Notes
	}
	var resp Requirement
	err := c.do(ctx, http.MethodPost, "requirements", body, &resp)
	return resp, err
}

// UpdateRequirement merges the given fields into a requirement.
func (c *Client) UpdateRequirement(ctx context.Context, id string, fields map[string]any) (Requirement, error) {
	var resp Requirement
	err := c.do(ctx, http.MethodPatch, "requirements/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

// Activities returns recent activity, newest first.
func (c *Client) Activities(ctx context.Context, limit int, entityType, entityID string) ([]Activity, error) {
	q := url.Values{"entity_type": {entityType}, "entity_id": {entityID}}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp struct {
		Items []Activity `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("activities", q), nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := c.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(basePath, "/")
}

func withQuery(endpoint string, q url.Values) string {
	for k, v := range q {
		if len(v) == 0 || v[0] == "" {
			q.Del(k)
		}
	}
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}
