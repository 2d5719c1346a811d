package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/weekplanner/internal/auth"
	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/persist"
	"github.com/nhle/weekplanner/tests/testutil"
)

// fakeCloud is an in-memory remote backend with per-call gating so
// tests can hold a load in flight.
type fakeCloud struct {
	mu        gosync.Mutex
	tasks     map[string][]model.Task
	settings  map[string]model.SlotSettings
	failSaves bool
	loadGate  chan struct{}

	taskSaves     int
	settingsSaves int
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		tasks:    make(map[string][]model.Task),
		settings: make(map[string]model.SlotSettings),
	}
}

func (f *fakeCloud) Name() string { return "fake" }

func (f *fakeCloud) waitGate() {
	f.mu.Lock()
	gate := f.loadGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeCloud) SaveTasks(_ context.Context, uid string, tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskSaves++
	if f.failSaves {
		return errors.New("cloud unavailable")
	}
	f.tasks[uid] = append([]model.Task(nil), tasks...)
	return nil
}

func (f *fakeCloud) LoadTasks(_ context.Context, uid string) (persist.TasksResult, error) {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks, ok := f.tasks[uid]
	if !ok {
		return persist.TasksResult{}, nil
	}
	return persist.TasksResult{Exists: true, Tasks: tasks}, nil
}

func (f *fakeCloud) SaveSettings(_ context.Context, uid string, settings model.SlotSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingsSaves++
	if f.failSaves {
		return errors.New("cloud unavailable")
	}
	f.settings[uid] = settings.Clone()
	return nil
}

func (f *fakeCloud) LoadSettings(_ context.Context, uid string) (persist.SettingsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	settings, ok := f.settings[uid]
	if !ok {
		return persist.SettingsResult{}, nil
	}
	return persist.SettingsResult{Exists: true, Settings: settings}, nil
}

func (f *fakeCloud) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskSaves, f.settingsSaves
}

// sessionProvider mints sessions for any credentials.
type sessionProvider struct {
	uid string
}

func (p *sessionProvider) Name() string { return "fake" }

func (p *sessionProvider) SignIn(_ context.Context, email, _ string) (auth.Session, error) {
	return auth.Session{
		Identity:    auth.Identity{UID: p.uid, Email: email},
		AccessToken: "token",
	}, nil
}

func (p *sessionProvider) SignUp(ctx context.Context, email, password string) (auth.Session, error) {
	return p.SignIn(ctx, email, password)
}

func (p *sessionProvider) Refresh(_ context.Context, _ string) (auth.Session, error) {
	return auth.Session{}, errors.New("no refresh in tests")
}

func newTestGateway(t *testing.T, remote persist.Backend) *persist.Gateway {
	t.Helper()
	return persist.NewGateway(testutil.NewTestLocalStore(t), remote)
}

func nextEvent(t *testing.T, o *Orchestrator) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- o.WaitForEvent()() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for orchestrator event")
		return nil
	}
}

// awaitHydration consumes events up to HydrationDoneMsg and returns the
// hydrated tasks and settings.
func awaitHydration(t *testing.T, o *Orchestrator) (TasksHydratedMsg, SettingsHydratedMsg) {
	t.Helper()
	var tasks TasksHydratedMsg
	var settings SettingsHydratedMsg
	for {
		switch msg := nextEvent(t, o).(type) {
		case TasksHydratedMsg:
			tasks = msg
		case SettingsHydratedMsg:
			settings = msg
		case HydrationDoneMsg:
			return tasks, settings
		}
	}
}

// awaitSaveResult consumes events until the next SaveResultMsg.
func awaitSaveResult(t *testing.T, o *Orchestrator) SaveResultMsg {
	t.Helper()
	for {
		if msg, ok := nextEvent(t, o).(SaveResultMsg); ok {
			return msg
		}
	}
}

func TestAnonymousStartupSeedsStarterTasks(t *testing.T) {
	gateway := newTestGateway(t, nil)
	mgr := auth.NewManager(nil, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()

	tasks, settings := awaitHydration(t, o)

	if tasks.FromCloud {
		t.Error("anonymous hydration claimed cloud data")
	}
	if len(tasks.Tasks) != 5 {
		t.Fatalf("expected starter tasks, got %d", len(tasks.Tasks))
	}
	if settings.Settings[model.SlotMorning].Name != "Morning" {
		t.Errorf("expected default settings, got %+v", settings.Settings)
	}
	if o.State() != StateAnonymous {
		t.Errorf("state = %v, want StateAnonymous", o.State())
	}
}

func TestAnonymousStartupLoadsLocalData(t *testing.T) {
	gateway := newTestGateway(t, nil)
	saved := []model.Task{{ID: "t1", Title: "Existing", CreatedAt: model.Now()}}
	if _, err := gateway.SaveTasks(context.Background(), "", saved); err != nil {
		t.Fatalf("seeding local store: %v", err)
	}

	o := New(gateway, auth.NewManager(nil, nil, ""))
	o.Start()
	defer o.Stop()

	tasks, _ := awaitHydration(t, o)
	if len(tasks.Tasks) != 1 || tasks.Tasks[0].ID != "t1" {
		t.Errorf("local data not adopted: %+v", tasks.Tasks)
	}
}

func TestFirstSaveAfterHydrationPersists(t *testing.T) {
	gateway := newTestGateway(t, nil)
	o := New(gateway, auth.NewManager(nil, nil, ""))
	o.Start()
	defer o.Stop()

	hydrated, _ := awaitHydration(t, o)

	// The very first mutation after startup must land on disk; saves
	// are explicit commands from the UI, never adoption echoes.
	edited := append(hydrated.Tasks, model.Task{ID: "new", Title: "Added after load", CreatedAt: model.Now()})
	o.SaveTasks(edited)

	res := awaitSaveResult(t, o)
	if res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}
	if res.Status != "saved locally" {
		t.Errorf("status = %q", res.Status)
	}

	local := gateway.LocalTasks(context.Background())
	if !local.Exists {
		t.Fatal("first edit after hydration was never persisted")
	}
	if len(local.Tasks) != len(edited) {
		t.Fatalf("persisted %d tasks, want %d", len(local.Tasks), len(edited))
	}
	found := false
	for _, task := range local.Tasks {
		if task.ID == "new" {
			found = true
		}
	}
	if !found {
		t.Error("the new task is missing from the persisted list")
	}
}

func TestSignInAdoptsCloudData(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{{ID: "c1", Title: "From cloud", CreatedAt: model.Now()}}
	cloud.settings["user-1"] = model.SlotSettings{
		model.SlotMorning: {Name: "Cloud AM", Subtitle: "9 - 12"},
	}
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()

	tasks, settings := awaitHydration(t, o)
	if !tasks.FromCloud || len(tasks.Tasks) != 1 || tasks.Tasks[0].ID != "c1" {
		t.Errorf("cloud tasks not adopted: %+v", tasks)
	}
	if settings.Settings[model.SlotMorning].Name != "Cloud AM" {
		t.Errorf("cloud settings not adopted: %+v", settings.Settings)
	}
	if o.State() != StateAuthenticated {
		t.Errorf("state = %v, want StateAuthenticated", o.State())
	}

	// Existing cloud data needs no write-back.
	time.Sleep(200 * time.Millisecond)
	taskSaves, settingsSaves := cloud.counts()
	if taskSaves != 0 || settingsSaves != 0 {
		t.Errorf("adopting cloud data wrote back: tasks=%d settings=%d", taskSaves, settingsSaves)
	}
}

func TestSignInWithoutCloudDataAdoptsLocalAndWritesBackOnce(t *testing.T) {
	cloud := newFakeCloud()
	gateway := newTestGateway(t, cloud)

	localTasks := []model.Task{
		{ID: "l1", Title: "Offline one", CreatedAt: model.Now()},
		{ID: "l2", Title: "Offline two", CreatedAt: model.Now()},
		{ID: "l3", Title: "Offline three", CreatedAt: model.Now()},
	}
	if _, err := gateway.SaveTasks(context.Background(), "", localTasks); err != nil {
		t.Fatalf("seeding local store: %v", err)
	}

	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()

	tasks, _ := awaitHydration(t, o)
	if tasks.FromCloud {
		t.Error("fallback data claimed to be from the cloud")
	}
	if len(tasks.Tasks) != 3 {
		t.Fatalf("local tasks not adopted: %+v", tasks.Tasks)
	}

	// Both adopted stores are written up exactly once.
	awaitSaveResult(t, o)
	awaitSaveResult(t, o)
	taskSaves, settingsSaves := cloud.counts()
	if taskSaves != 1 {
		t.Errorf("task write-back count = %d, want 1", taskSaves)
	}
	if settingsSaves != 1 {
		t.Errorf("settings write-back count = %d, want 1", settingsSaves)
	}
	if got := cloud.tasks["user-1"]; len(got) != 3 {
		t.Errorf("cloud did not receive the adopted tasks: %+v", got)
	}
}

func TestAuthenticatedSaveGoesToCloud(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{}
	cloud.settings["user-1"] = model.DefaultSlotSettings()
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()
	awaitHydration(t, o)

	// The first mutation after the cloud hydration goes straight up.
	edited := []model.Task{{ID: "e1", Title: "Edited", CreatedAt: model.Now()}}
	o.SaveTasks(edited)

	res := awaitSaveResult(t, o)
	if res.Status != "synced to cloud" {
		t.Errorf("status = %q", res.Status)
	}
	if got := cloud.tasks["user-1"]; len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("cloud did not receive the edit: %+v", got)
	}
}

func TestCloudFailureFallsBackLocally(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{}
	cloud.settings["user-1"] = model.DefaultSlotSettings()
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()
	awaitHydration(t, o)

	cloud.mu.Lock()
	cloud.failSaves = true
	cloud.mu.Unlock()

	edited := []model.Task{{ID: "e1", Title: "Offline edit", CreatedAt: model.Now()}}
	o.SaveTasks(edited)

	res := awaitSaveResult(t, o)
	if res.Err != nil {
		t.Fatalf("fallback save reported error: %v", res.Err)
	}
	if res.Destination != persist.DestLocalFallback {
		t.Errorf("destination = %v, want DestLocalFallback", res.Destination)
	}
	if res.Status != "cloud unavailable, saved locally" {
		t.Errorf("status = %q", res.Status)
	}

	local := gateway.LocalTasks(context.Background())
	if !local.Exists || len(local.Tasks) != 1 || local.Tasks[0].ID != "e1" {
		t.Errorf("edit lost on cloud failure: %+v", local)
	}
}

func TestStaleHydrationIsDiscarded(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{{ID: "c1", Title: "Stale cloud", CreatedAt: model.Now()}}
	gate := make(chan struct{})
	cloud.loadGate = gate
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()

	// Sign out while the cloud load is still in flight.
	mgr.SignOut()
	o.SignedOut()

	tasks, _ := awaitHydration(t, o)
	if tasks.FromCloud {
		t.Error("sign out hydration claimed cloud data")
	}

	// Release the stalled load; its results belong to a dead generation
	// and must not surface.
	close(gate)
	select {
	case <-time.After(300 * time.Millisecond):
	case msg := <-func() chan tea.Msg {
		ch := make(chan tea.Msg, 1)
		go func() { ch <- o.WaitForEvent()() }()
		return ch
	}():
		if hydrated, ok := msg.(TasksHydratedMsg); ok && hydrated.FromCloud {
			t.Fatalf("stale cloud hydration surfaced: %+v", hydrated)
		}
	}
}

func TestSavesDroppedWhileHydrating(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{}
	cloud.settings["user-1"] = model.DefaultSlotSettings()
	gate := make(chan struct{})
	cloud.loadGate = gate
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()

	if o.State() != StateHydrating {
		t.Fatalf("state = %v, want StateHydrating", o.State())
	}
	// A save of pre-hydration data during the window is dropped.
	o.SaveTasks([]model.Task{{ID: "doomed", Title: "About to be replaced"}})

	close(gate)
	awaitHydration(t, o)

	time.Sleep(200 * time.Millisecond)
	taskSaves, _ := cloud.counts()
	if taskSaves != 0 {
		t.Errorf("save during hydration reached the cloud %d times", taskSaves)
	}
}

func TestSignOutRehydratesThroughHydratingWindow(t *testing.T) {
	cloud := newFakeCloud()
	cloud.tasks["user-1"] = []model.Task{{ID: "c1", Title: "Cloud task", CreatedAt: model.Now()}}
	cloud.settings["user-1"] = model.DefaultSlotSettings()
	gateway := newTestGateway(t, cloud)
	mgr := auth.NewManager(&sessionProvider{uid: "user-1"}, nil, "")
	o := New(gateway, mgr)
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	if _, err := mgr.SignIn(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	o.SignedIn()
	awaitHydration(t, o)

	mgr.SignOut()
	o.SignedOut()

	// The local rehydration opens the same protected window as the
	// cloud one; a save slipping in here would be shadowed in memory
	// by the adopted snapshot.
	if o.State() != StateHydrating {
		t.Fatal("sign out must enter the hydrating state before loading")
	}
	o.SaveTasks([]model.Task{{ID: "doomed", Title: "Mid-window edit"}})

	tasks, _ := awaitHydration(t, o)
	if tasks.FromCloud {
		t.Error("sign out hydration claimed cloud data")
	}

	time.Sleep(200 * time.Millisecond)
	local := gateway.LocalTasks(context.Background())
	for _, task := range local.Tasks {
		if task.ID == "doomed" {
			t.Error("save admitted during the rehydration window was persisted")
		}
	}
}

func TestClearAllPersistsEmptyList(t *testing.T) {
	gateway := newTestGateway(t, nil)
	o := New(gateway, auth.NewManager(nil, nil, ""))
	o.Start()
	defer o.Stop()
	awaitHydration(t, o)

	o.SaveTasks([]model.Task{})

	res := awaitSaveResult(t, o)
	if res.Err != nil {
		t.Fatalf("save: %v", res.Err)
	}

	local := gateway.LocalTasks(context.Background())
	if !local.Exists {
		t.Fatal("cleared list must persist as an existing empty document")
	}
	if len(local.Tasks) != 0 {
		t.Errorf("expected empty list, got %+v", local.Tasks)
	}
}
