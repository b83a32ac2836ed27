// Package client talks to the task manager HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskmanager/internal/model"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Task is the wire form of a task.
type Task struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Status      string  `json:"status"`
	Started     *string `json:"started"`
	CompletedAt *string `json:"completedAt"`
	UserID      string  `json:"userId"`
}

// Model converts the wire form. date is the UTC creation date and time the
// clock in loc, the server's location. Blank or unknown statuses read as Not Started.
func (t Task) Model(loc *time.Location) (model.Task, error) {
	out := model.Task{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    model.Priority(t.Priority),
		Status:      model.NormalizeStatus(t.Status),
	}
	if t.Date != "" {
		created, err := model.JoinCreated(t.Date, t.Time, loc)
		if err != nil {
			return out, fmt.Errorf("task %d date: %w", t.ID, err)
		}
		out.CreatedAt = created
	}

	var err error
	if out.StartedAt, err = model.ParseOptionalTime(deref(t.Started), loc); err != nil {
		return out, fmt.Errorf("task %d started: %w", t.ID, err)
	}
	if out.CompletedAt, err = model.ParseOptionalTime(deref(t.CompletedAt), loc); err != nil {
		return out, fmt.Errorf("task %d completedAt: %w", t.ID, err)
	}
	if due := deref(t.DueDate); due != "" {
		d, err := model.ParseTime(due, time.UTC)
		if err != nil {
			return out, fmt.Errorf("task %d dueDate: %w", t.ID, err)
		}
		out.DueDate = &d
	}
	return out, nil
}

// Models converts a list, failing on the first malformed task.
func Models(tasks []Task, loc *time.Location) ([]model.Task, error) {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		m, err := t.Model(loc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type LoginResult struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	UserID      string `json:"userId"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken attaches a bearer token to later requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/logout", map[string]string{"userId": userID}, nil)
}

func (c *Client) ListTasks(ctx context.Context, userID, query, date string) ([]Task, error) {
	q := url.Values{"userId": {userID}}
	if query != "" {
		q.Set("q", query)
	}
	if date != "" {
		q.Set("date", date)
	}
	var resp struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id int64, status string) error {
	path := "/tasks/" + strconv.FormatInt(id, 10)
	return c.do(ctx, http.MethodPatch, path, map[string]string{"status": status}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
