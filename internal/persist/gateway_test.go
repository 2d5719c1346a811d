package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/weekplanner/internal/model"
)

// fakeRemote is an in-memory Backend with switchable failure modes.
type fakeRemote struct {
	tasks     map[string][]model.Task
	settings  map[string]model.SlotSettings
	failSaves bool
	failLoads bool
	saveCalls int
	loadCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks:    make(map[string][]model.Task),
		settings: make(map[string]model.SlotSettings),
	}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) SaveTasks(_ context.Context, uid string, tasks []model.Task) error {
	f.saveCalls++
	if f.failSaves {
		return errors.New("remote unavailable")
	}
	f.tasks[uid] = append([]model.Task(nil), tasks...)
	return nil
}

func (f *fakeRemote) LoadTasks(_ context.Context, uid string) (TasksResult, error) {
	f.loadCalls++
	if f.failLoads {
		return TasksResult{}, errors.New("remote unavailable")
	}
	tasks, ok := f.tasks[uid]
	if !ok {
		return TasksResult{}, nil
	}
	return TasksResult{Exists: true, Tasks: tasks}, nil
}

func (f *fakeRemote) SaveSettings(_ context.Context, uid string, settings model.SlotSettings) error {
	f.saveCalls++
	if f.failSaves {
		return errors.New("remote unavailable")
	}
	f.settings[uid] = settings.Clone()
	return nil
}

func (f *fakeRemote) LoadSettings(_ context.Context, uid string) (SettingsResult, error) {
	f.loadCalls++
	if f.failLoads {
		return SettingsResult{}, errors.New("remote unavailable")
	}
	settings, ok := f.settings[uid]
	if !ok {
		return SettingsResult{}, nil
	}
	return SettingsResult{Exists: true, Settings: settings}, nil
}

func TestGatewayAnonymousRoutesLocal(t *testing.T) {
	remote := newFakeRemote()
	g := NewGateway(newTestLocal(t), remote)
	ctx := context.Background()

	dest, err := g.SaveTasks(ctx, "", model.SampleTasks())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if dest != DestLocal {
		t.Errorf("anonymous save went to %v, want DestLocal", dest)
	}
	if remote.saveCalls != 0 {
		t.Error("anonymous save touched the remote backend")
	}

	res := g.LoadTasks(ctx, "")
	if !res.Exists || len(res.Tasks) != 5 {
		t.Errorf("anonymous load missed local data: %+v", res)
	}
	if remote.loadCalls != 0 {
		t.Error("anonymous load touched the remote backend")
	}
}

func TestGatewayAuthenticatedRoutesRemote(t *testing.T) {
	remote := newFakeRemote()
	g := NewGateway(newTestLocal(t), remote)
	ctx := context.Background()

	dest, err := g.SaveTasks(ctx, "user-1", model.SampleTasks())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if dest != DestCloud {
		t.Errorf("authenticated save went to %v, want DestCloud", dest)
	}

	res := g.LoadTasks(ctx, "user-1")
	if !res.Exists || len(res.Tasks) != 5 {
		t.Errorf("authenticated load missed remote data: %+v", res)
	}

	// Local store stays untouched by cloud traffic.
	if local := g.LocalTasks(ctx); local.Exists {
		t.Error("cloud save leaked into local storage")
	}
}

func TestGatewayRemoteSaveFailureFallsBackLocal(t *testing.T) {
	remote := newFakeRemote()
	remote.failSaves = true
	g := NewGateway(newTestLocal(t), remote)
	ctx := context.Background()

	tasks := []model.Task{{ID: "a", Title: "Edited offline", CreatedAt: model.Now()}}
	dest, err := g.SaveTasks(ctx, "user-1", tasks)
	if err != nil {
		t.Fatalf("fallback save failed: %v", err)
	}
	if dest != DestLocalFallback {
		t.Errorf("failed remote save reported %v, want DestLocalFallback", dest)
	}

	local := g.LocalTasks(ctx)
	if !local.Exists || len(local.Tasks) != 1 || local.Tasks[0].ID != "a" {
		t.Errorf("attempted write not preserved locally: %+v", local)
	}
}

func TestGatewayRemoteLoadFailureReportsMissing(t *testing.T) {
	remote := newFakeRemote()
	remote.failLoads = true
	g := NewGateway(newTestLocal(t), remote)
	ctx := context.Background()

	res := g.LoadTasks(ctx, "user-1")
	if res.Exists {
		t.Error("remote load failure must surface as Exists=false")
	}

	sres := g.LoadSettings(ctx, "user-1")
	if sres.Exists {
		t.Error("remote settings load failure must surface as Exists=false")
	}
}

func TestGatewayNoRemoteConfigured(t *testing.T) {
	g := NewGateway(newTestLocal(t), nil)
	ctx := context.Background()

	if g.Remote() {
		t.Error("gateway with nil remote reports Remote()=true")
	}

	dest, err := g.SaveTasks(ctx, "user-1", model.SampleTasks())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if dest != DestLocal {
		t.Errorf("save without remote went to %v, want DestLocal", dest)
	}

	res := g.LoadTasks(ctx, "user-1")
	if !res.Exists {
		t.Error("load without remote missed local data")
	}
}

func TestGatewaySettingsFallback(t *testing.T) {
	remote := newFakeRemote()
	remote.failSaves = true
	g := NewGateway(newTestLocal(t), remote)
	ctx := context.Background()

	settings := model.DefaultSlotSettings()
	dest, err := g.SaveSettings(ctx, "user-1", settings)
	if err != nil {
		t.Fatalf("fallback save failed: %v", err)
	}
	if dest != DestLocalFallback {
		t.Errorf("failed remote save reported %v, want DestLocalFallback", dest)
	}
	if local := g.LocalSettings(ctx); !local.Exists {
		t.Error("attempted settings write not preserved locally")
	}
}
