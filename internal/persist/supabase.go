package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nhle/weekplanner/internal/model"
)

// Supabase stores planner state in two Postgres tables keyed by user
// id, weekly_planner_tasks and weekly_planner_settings, through the
// PostgREST API. Writes are upserts on user_id so each user has at most
// one row per table.
type Supabase struct {
	baseURL    string
	anonKey    string
	token      TokenSource
	httpClient *http.Client
}

// NewSupabase creates a PostgREST client for the given project URL.
// token supplies the signed in user's JWT; when it returns "" the anon
// key is used as the bearer.
func NewSupabase(baseURL, anonKey string, token TokenSource) *Supabase {
	return &Supabase{
		baseURL:    baseURL,
		anonKey:    anonKey,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the backend in status messages.
func (c *Supabase) Name() string {
	return "supabase"
}

// SaveTasks upserts the user's row in weekly_planner_tasks.
func (c *Supabase) SaveTasks(ctx context.Context, uid string, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	row := supabaseTasksRow{
		UserID:    uid,
		TasksData: tasks,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return c.upsert(ctx, "weekly_planner_tasks", row)
}

// LoadTasks reads the user's row from weekly_planner_tasks. A user with
// no row yields Exists=false.
func (c *Supabase) LoadTasks(ctx context.Context, uid string) (TasksResult, error) {
	var rows []supabaseTasksRow
	if err := c.selectRows(ctx, "weekly_planner_tasks", "tasks_data", uid, &rows); err != nil {
		return TasksResult{}, err
	}
	if len(rows) == 0 {
		return TasksResult{}, nil
	}
	tasks := rows[0].TasksData
	if tasks == nil {
		tasks = []model.Task{}
	}
	return TasksResult{Exists: true, Tasks: tasks}, nil
}

// SaveSettings upserts the user's row in weekly_planner_settings.
func (c *Supabase) SaveSettings(ctx context.Context, uid string, settings model.SlotSettings) error {
	row := supabaseSettingsRow{
		UserID:           uid,
		TimeSlotSettings: settings,
		UpdatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	return c.upsert(ctx, "weekly_planner_settings", row)
}

// LoadSettings reads the user's row from weekly_planner_settings. A
// user with no row yields Exists=false.
func (c *Supabase) LoadSettings(ctx context.Context, uid string) (SettingsResult, error) {
	var rows []supabaseSettingsRow
	if err := c.selectRows(ctx, "weekly_planner_settings", "time_slot_settings", uid, &rows); err != nil {
		return SettingsResult{}, err
	}
	if len(rows) == 0 || rows[0].TimeSlotSettings == nil {
		return SettingsResult{}, nil
	}
	return SettingsResult{Exists: true, Settings: rows[0].TimeSlotSettings}, nil
}

// upsert POSTs a single row with merge-duplicates resolution so a
// second save for the same user updates the existing row.
func (c *Supabase) upsert(ctx context.Context, table string, row interface{}) error {
	url := fmt.Sprintf("%s/rest/v1/%s?on_conflict=user_id", c.baseURL, table)

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal %s row: %w", table, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build %s upsert request: %w", table, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call %s upsert API: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s upsert error %d: %s", table, resp.StatusCode, string(raw))
	}

	return nil
}

// selectRows fetches the user's row, decoding the result array into
// dest. No row matching the user decodes to an empty array.
func (c *Supabase) selectRows(ctx context.Context, table, column, uid string, dest interface{}) error {
	url := fmt.Sprintf("%s/rest/v1/%s?user_id=eq.%s&select=%s", c.baseURL, table, uid, column)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s select request: %w", table, err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call %s select API: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s select error %d: %s", table, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return nil
}

// authorize attaches the project anon key plus the strongest available
// bearer token.
func (c *Supabase) authorize(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	bearer := c.anonKey
	if c.token != nil {
		if t := c.token(); t != "" {
			bearer = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
}

// ---- Request/Response rows scoped to this package ----

type supabaseTasksRow struct {
	UserID    string       `json:"user_id,omitempty"`
	TasksData []model.Task `json:"tasks_data"`
	UpdatedAt string       `json:"updated_at,omitempty"`
}

type supabaseSettingsRow struct {
	UserID           string             `json:"user_id,omitempty"`
	TimeSlotSettings model.SlotSettings `json:"time_slot_settings"`
	UpdatedAt        string             `json:"updated_at,omitempty"`
}
