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

// defaultFirestoreBaseURL is the production Firestore REST endpoint.
// Tests point the client at a local server instead.
const defaultFirestoreBaseURL = "https://firestore.googleapis.com/v1"

// TokenSource supplies the bearer token for the signed in user at
// request time. It returns "" when no token is available.
type TokenSource func() string

// Firestore stores planner state in a single Firestore document per
// user, at users/{uid}. Task and settings writes patch disjoint fields
// of that document so neither overwrites the other.
type Firestore struct {
	baseURL    string
	projectID  string
	apiKey     string
	token      TokenSource
	httpClient *http.Client
}

// NewFirestore creates a Firestore REST client for the given project.
// token may be nil for projects with open security rules.
func NewFirestore(projectID, apiKey string, token TokenSource) *Firestore {
	return &Firestore{
		baseURL:    defaultFirestoreBaseURL,
		projectID:  projectID,
		apiKey:     apiKey,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewFirestoreWithBaseURL is NewFirestore with an explicit endpoint,
// for tests.
func NewFirestoreWithBaseURL(baseURL, projectID, apiKey string, token TokenSource) *Firestore {
	c := NewFirestore(projectID, apiKey, token)
	c.baseURL = baseURL
	return c
}

// Name identifies the backend in status messages.
func (c *Firestore) Name() string {
	return "firestore"
}

// SaveTasks patches the tasks field of the user document, leaving the
// settings field untouched.
func (c *Firestore) SaveTasks(ctx context.Context, uid string, tasks []model.Task) error {
	doc := fsDocument{Fields: map[string]fsValue{
		"tasks":     encodeFirestoreTasks(tasks),
		"updatedAt": {TimestampValue: strPtr(time.Now().UTC().Format(time.RFC3339))},
	}}
	return c.patchDocument(ctx, uid, doc, []string{"tasks", "updatedAt"})
}

// LoadTasks reads the tasks field of the user document. A missing
// document, or a document without a tasks field, yields Exists=false.
func (c *Firestore) LoadTasks(ctx context.Context, uid string) (TasksResult, error) {
	doc, found, err := c.getDocument(ctx, uid)
	if err != nil {
		return TasksResult{}, err
	}
	if !found {
		return TasksResult{}, nil
	}
	field, ok := doc.Fields["tasks"]
	if !ok {
		return TasksResult{}, nil
	}
	return TasksResult{Exists: true, Tasks: decodeFirestoreTasks(field)}, nil
}

// SaveSettings patches the timeSlotSettings field of the user document,
// leaving the tasks field untouched.
func (c *Firestore) SaveSettings(ctx context.Context, uid string, settings model.SlotSettings) error {
	doc := fsDocument{Fields: map[string]fsValue{
		"timeSlotSettings": encodeFirestoreSettings(settings),
		"updatedAt":        {TimestampValue: strPtr(time.Now().UTC().Format(time.RFC3339))},
	}}
	return c.patchDocument(ctx, uid, doc, []string{"timeSlotSettings", "updatedAt"})
}

// LoadSettings reads the timeSlotSettings field of the user document.
// A missing document, or a document without that field, yields
// Exists=false.
func (c *Firestore) LoadSettings(ctx context.Context, uid string) (SettingsResult, error) {
	doc, found, err := c.getDocument(ctx, uid)
	if err != nil {
		return SettingsResult{}, err
	}
	if !found {
		return SettingsResult{}, nil
	}
	field, ok := doc.Fields["timeSlotSettings"]
	if !ok {
		return SettingsResult{}, nil
	}
	return SettingsResult{Exists: true, Settings: decodeFirestoreSettings(field)}, nil
}

// documentURL builds the REST URL for the user's planner document.
func (c *Firestore) documentURL(uid string) string {
	return fmt.Sprintf(
		"%s/projects/%s/databases/(default)/documents/users/%s",
		c.baseURL, c.projectID, uid,
	)
}

// patchDocument merges the given fields into the user document. The
// update mask restricts the write to the named field paths so the rest
// of the document survives.
func (c *Firestore) patchDocument(ctx context.Context, uid string, doc fsDocument, mask []string) error {
	url := c.documentURL(uid) + "?"
	for _, path := range mask {
		url += "updateMask.fieldPaths=" + path + "&"
	}
	url += "key=" + c.apiKey

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal firestore document: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build firestore patch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call firestore patch API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("firestore patch error %d: %s", resp.StatusCode, string(raw))
	}

	return nil
}

// getDocument fetches the user document, reporting found=false on 404.
func (c *Firestore) getDocument(ctx context.Context, uid string) (fsDocument, bool, error) {
	url := c.documentURL(uid) + "?key=" + c.apiKey

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fsDocument{}, false, fmt.Errorf("failed to build firestore get request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fsDocument{}, false, fmt.Errorf("failed to call firestore get API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fsDocument{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fsDocument{}, false, fmt.Errorf("firestore get error %d: %s", resp.StatusCode, string(raw))
	}

	var doc fsDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fsDocument{}, false, fmt.Errorf("failed to decode firestore document: %w", err)
	}
	return doc, true, nil
}

// authorize attaches the user's bearer token when one is available.
func (c *Firestore) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
}

// ---- Firestore REST value encoding ----

// fsDocument is the Firestore REST document envelope.
type fsDocument struct {
	Name   string             `json:"name,omitempty"`
	Fields map[string]fsValue `json:"fields"`
}

// fsValue is the Firestore REST typed value union. Exactly one field is
// set per value.
type fsValue struct {
	NullValue      *string  `json:"nullValue,omitempty"`
	StringValue    *string  `json:"stringValue,omitempty"`
	BooleanValue   *bool    `json:"booleanValue,omitempty"`
	IntegerValue   *string  `json:"integerValue,omitempty"`
	TimestampValue *string  `json:"timestampValue,omitempty"`
	ArrayValue     *fsArray `json:"arrayValue,omitempty"`
	MapValue       *fsMap   `json:"mapValue,omitempty"`
}

type fsArray struct {
	Values []fsValue `json:"values,omitempty"`
}

type fsMap struct {
	Fields map[string]fsValue `json:"fields,omitempty"`
}

func strPtr(s string) *string { return &s }

func fsString(s string) fsValue { return fsValue{StringValue: &s} }
func fsBool(b bool) fsValue     { return fsValue{BooleanValue: &b} }
func fsNull() fsValue           { return fsValue{NullValue: strPtr("NULL_VALUE")} }

// stringAt extracts a string from a map field, accepting integer values
// for ids written by old installs.
func stringAt(fields map[string]fsValue, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	if v.StringValue != nil {
		return *v.StringValue
	}
	if v.IntegerValue != nil {
		return *v.IntegerValue
	}
	return ""
}

func boolAt(fields map[string]fsValue, name string) bool {
	v, ok := fields[name]
	if ok && v.BooleanValue != nil {
		return *v.BooleanValue
	}
	return false
}

func encodeFirestoreTasks(tasks []model.Task) fsValue {
	values := make([]fsValue, 0, len(tasks))
	for _, t := range tasks {
		fields := map[string]fsValue{
			"id":          fsString(t.ID),
			"title":       fsString(t.Title),
			"description": fsString(t.Description),
			"day":         fsString(t.Day),
			"completed":   fsBool(t.Completed),
			"createdAt":   fsString(t.CreatedAt),
		}
		// Unplaced tasks store an explicit null, matching what the
		// planner has always written.
		if t.TimeSlot == "" {
			fields["timeSlot"] = fsNull()
		} else {
			fields["timeSlot"] = fsString(t.TimeSlot)
		}
		values = append(values, fsValue{MapValue: &fsMap{Fields: fields}})
	}
	return fsValue{ArrayValue: &fsArray{Values: values}}
}

func decodeFirestoreTasks(v fsValue) []model.Task {
	if v.ArrayValue == nil {
		return []model.Task{}
	}
	tasks := make([]model.Task, 0, len(v.ArrayValue.Values))
	for _, item := range v.ArrayValue.Values {
		if item.MapValue == nil {
			continue
		}
		fields := item.MapValue.Fields
		tasks = append(tasks, model.Task{
			ID:          stringAt(fields, "id"),
			Title:       stringAt(fields, "title"),
			Description: stringAt(fields, "description"),
			Day:         stringAt(fields, "day"),
			TimeSlot:    stringAt(fields, "timeSlot"),
			Completed:   boolAt(fields, "completed"),
			CreatedAt:   stringAt(fields, "createdAt"),
		})
	}
	return tasks
}

func encodeFirestoreSettings(settings model.SlotSettings) fsValue {
	fields := make(map[string]fsValue, len(settings))
	for id, entry := range settings {
		fields[id] = fsValue{MapValue: &fsMap{Fields: map[string]fsValue{
			"name":     fsString(entry.Name),
			"subtitle": fsString(entry.Subtitle),
		}}}
	}
	return fsValue{MapValue: &fsMap{Fields: fields}}
}

func decodeFirestoreSettings(v fsValue) model.SlotSettings {
	settings := model.SlotSettings{}
	if v.MapValue == nil {
		return settings
	}
	for id, entry := range v.MapValue.Fields {
		if entry.MapValue == nil {
			continue
		}
		settings[id] = model.SlotEntry{
			Name:     stringAt(entry.MapValue.Fields, "name"),
			Subtitle: stringAt(entry.MapValue.Fields, "subtitle"),
		}
	}
	return settings
}
