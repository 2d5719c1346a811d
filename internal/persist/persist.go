// Package persist abstracts saving and loading planner state over two
// kinds of backends: the local SQLite document store and a remote cloud
// store partitioned by user id. Backends are stateless read/write
// façades; the in-memory state they serve is owned by the caller.
package persist

import (
	"context"

	"github.com/nhle/weekplanner/internal/model"
)

// TasksResult is the outcome of a task load. Exists distinguishes "no
// document for this user" from "document with an intentionally empty
// task list"; the sync layer depends on that distinction to decide
// between fallback and adoption.
type TasksResult struct {
	Exists bool
	Tasks  []model.Task
}

// SettingsResult is the outcome of a slot settings load.
type SettingsResult struct {
	Exists   bool
	Settings model.SlotSettings
}

// Backend is the storage contract implemented by the local store and by
// each remote variant. Writes to a remote backend are merges: saving
// tasks must not erase the settings stored in the same user record, and
// vice versa.
type Backend interface {
	// Name identifies the backend in status messages.
	Name() string

	SaveTasks(ctx context.Context, uid string, tasks []model.Task) error
	LoadTasks(ctx context.Context, uid string) (TasksResult, error)
	SaveSettings(ctx context.Context, uid string, settings model.SlotSettings) error
	LoadSettings(ctx context.Context, uid string) (SettingsResult, error)
}

// Destination reports where a save actually landed.
type Destination int

const (
	// DestLocal means the write went to local storage by design
	// (anonymous mode, or no remote backend configured).
	DestLocal Destination = iota

	// DestCloud means the write reached the remote backend.
	DestCloud

	// DestLocalFallback means the remote write failed and the data was
	// preserved locally instead.
	DestLocalFallback
)

// Gateway routes each operation to the local store or the remote
// backend based on the identity in effect at call time. A nil remote
// backend makes every identity behave as anonymous.
type Gateway struct {
	local  *Local
	remote Backend
}

// NewGateway creates a gateway over the given local store and optional
// remote backend.
func NewGateway(local *Local, remote Backend) *Gateway {
	return &Gateway{local: local, remote: remote}
}

// Remote reports whether a remote backend is configured.
func (g *Gateway) Remote() bool {
	return g.remote != nil
}

// SaveTasks persists tasks for the given identity. With an empty uid
// (or no remote configured) the write targets local storage. A failed
// remote write falls back to local storage so no edit is lost; the
// returned error is non-nil only when both writes fail.
func (g *Gateway) SaveTasks(ctx context.Context, uid string, tasks []model.Task) (Destination, error) {
	if uid == "" || g.remote == nil {
		return DestLocal, g.local.SaveTasks(ctx, uid, tasks)
	}
	if err := g.remote.SaveTasks(ctx, uid, tasks); err != nil {
		return DestLocalFallback, g.local.SaveTasks(ctx, uid, tasks)
	}
	return DestCloud, nil
}

// LoadTasks reads tasks for the given identity. A remote failure is
// reported as Exists=false so the caller falls back to local data or
// defaults; it is never an error.
func (g *Gateway) LoadTasks(ctx context.Context, uid string) TasksResult {
	if uid == "" || g.remote == nil {
		res, err := g.local.LoadTasks(ctx, uid)
		if err != nil {
			return TasksResult{}
		}
		return res
	}
	res, err := g.remote.LoadTasks(ctx, uid)
	if err != nil {
		return TasksResult{}
	}
	return res
}

// SaveSettings persists slot settings with the same routing and
// fallback rules as SaveTasks.
func (g *Gateway) SaveSettings(ctx context.Context, uid string, settings model.SlotSettings) (Destination, error) {
	if uid == "" || g.remote == nil {
		return DestLocal, g.local.SaveSettings(ctx, uid, settings)
	}
	if err := g.remote.SaveSettings(ctx, uid, settings); err != nil {
		return DestLocalFallback, g.local.SaveSettings(ctx, uid, settings)
	}
	return DestCloud, nil
}

// LoadSettings reads slot settings with the same routing and fallback
// rules as LoadTasks.
func (g *Gateway) LoadSettings(ctx context.Context, uid string) SettingsResult {
	if uid == "" || g.remote == nil {
		res, err := g.local.LoadSettings(ctx, uid)
		if err != nil {
			return SettingsResult{}
		}
		return res
	}
	res, err := g.remote.LoadSettings(ctx, uid)
	if err != nil {
		return SettingsResult{}
	}
	return res
}

// LocalTasks reads the local task snapshot directly, regardless of
// identity. The sync layer uses it as the fallback source when a signed
// in user has no cloud document yet.
func (g *Gateway) LocalTasks(ctx context.Context) TasksResult {
	res, err := g.local.LoadTasks(ctx, "")
	if err != nil {
		return TasksResult{}
	}
	return res
}

// LocalSettings reads the local settings snapshot directly.
func (g *Gateway) LocalSettings(ctx context.Context) SettingsResult {
	res, err := g.local.LoadSettings(ctx, "")
	if err != nil {
		return SettingsResult{}
	}
	return res
}

// SaveFlag stores a named boolean in local storage. Flags are UI
// preferences (the how-to-use banner) and never sync to the cloud.
func (g *Gateway) SaveFlag(ctx context.Context, name string, value bool) error {
	return g.local.SaveFlag(ctx, name, value)
}

// LoadFlag reads a named boolean from local storage, returning def when
// the flag has never been written.
func (g *Gateway) LoadFlag(ctx context.Context, name string, def bool) bool {
	return g.local.LoadFlag(ctx, name, def)
}
