// Package sync coordinates hydration and persistence between the
// in-memory planner state, local storage, and the configured cloud
// backend. It owns the rule that every mutation is written through to
// whichever store matches the current identity, and the rule that saves
// requested while a hydration is in flight are dropped rather than
// written over by the incoming data.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/weekplanner/internal/auth"
	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/persist"
)

// opTimeout is the maximum time allowed for a single storage operation.
const opTimeout = 30 * time.Second

// StoreKind names the two independently persisted stores.
type StoreKind int

const (
	StoreTasks StoreKind = iota
	StoreSettings
)

func (k StoreKind) String() string {
	if k == StoreSettings {
		return "settings"
	}
	return "tasks"
}

// State is the orchestrator's identity lifecycle state.
type State int

const (
	// StateAnonymous serves everything from local storage.
	StateAnonymous State = iota

	// StateHydrating is the window between an identity transition and
	// the adoption of the loaded data. Saves requested in this window
	// belong to data that is about to be replaced and are dropped.
	StateHydrating

	// StateAuthenticated serves the signed in user from the cloud.
	StateAuthenticated
)

// TasksHydratedMsg carries a freshly loaded task list for the UI to
// adopt.
type TasksHydratedMsg struct {
	Tasks     []model.Task
	FromCloud bool
}

// SettingsHydratedMsg carries freshly loaded slot settings for the UI
// to adopt.
type SettingsHydratedMsg struct {
	Settings  model.SlotSettings
	FromCloud bool
}

// HydrationDoneMsg signals that both stores finished hydrating and the
// orchestrator left the hydrating state.
type HydrationDoneMsg struct {
	State State
}

// SaveResultMsg reports the outcome of one write-through save.
type SaveResultMsg struct {
	Store       StoreKind
	Destination persist.Destination
	Status      string
	Err         error
}

// saveJob is one queued write-through save. Jobs carry the generation
// they were created under so writes for a stale identity are dropped.
type saveJob struct {
	kind       StoreKind
	uid        string
	generation uint64
	tasks      []model.Task
	settings   model.SlotSettings
}

// Orchestrator routes loads and saves according to the current
// identity. All saves flow through a single worker goroutine, so writes
// are serialized in the order they were requested.
type Orchestrator struct {
	gateway *persist.Gateway
	auth    *auth.Manager

	eventCh chan tea.Msg
	saveCh  chan saveJob
	stopCh  chan struct{}

	mu         gosync.Mutex
	state      State
	generation uint64
	running    bool
}

// New creates an orchestrator over the given gateway and session
// manager.
func New(gateway *persist.Gateway, authMgr *auth.Manager) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
		auth:    authMgr,
		eventCh: make(chan tea.Msg, 16),
		saveCh:  make(chan saveJob, 16),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the save worker and the initial hydration, then
// returns the subscription command that feeds events to the Bubble Tea
// runtime. The initial hydration is local or cloud depending on whether
// a session was restored before Start.
func (o *Orchestrator) Start() tea.Cmd {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return o.waitForEvent()
	}
	o.running = true
	o.mu.Unlock()

	go o.saveWorker()

	if id, ok := o.auth.Current(); ok {
		o.beginCloudHydration(id)
	} else {
		o.beginLocalHydration()
	}

	return o.waitForEvent()
}

// Stop halts the save worker. Queued saves are abandoned.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return
	}
	close(o.stopCh)
	o.running = false
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SignedIn must be called after the session manager adopted a new
// session. It invalidates in-flight work for the previous identity and
// starts cloud hydration.
func (o *Orchestrator) SignedIn() {
	if id, ok := o.auth.Current(); ok {
		o.beginCloudHydration(id)
	}
}

// SignedOut must be called after the session was dropped. It
// invalidates in-flight work for the previous identity and rehydrates
// from local storage.
func (o *Orchestrator) SignedOut() {
	o.beginLocalHydration()
}

// SaveTasks queues a write-through save of the task list under the
// current identity. Requests made while a hydration is in flight are
// dropped.
func (o *Orchestrator) SaveTasks(tasks []model.Task) {
	uid, gen, ok := o.admitSave(StoreTasks)
	if !ok {
		return
	}
	o.enqueue(saveJob{
		kind:       StoreTasks,
		uid:        uid,
		generation: gen,
		tasks:      append([]model.Task(nil), tasks...),
	})
}

// SaveSettings queues a write-through save of the slot settings under
// the current identity, with the same hydration-window drop rule as
// SaveTasks.
func (o *Orchestrator) SaveSettings(settings model.SlotSettings) {
	uid, gen, ok := o.admitSave(StoreSettings)
	if !ok {
		return
	}
	o.enqueue(saveJob{
		kind:       StoreSettings,
		uid:        uid,
		generation: gen,
		settings:   settings.Clone(),
	})
}

// WaitForEvent returns a tea.Cmd that waits for the next orchestrator
// event. It must be re-issued after each received event to keep
// listening.
func (o *Orchestrator) WaitForEvent() tea.Cmd {
	return o.waitForEvent()
}

// admitSave decides whether a save request proceeds. Saves during
// hydration belong to data that is about to be replaced and are
// dropped; everything admitted afterwards is a deliberate mutation and
// is written through.
func (o *Orchestrator) admitSave(kind StoreKind) (uid string, gen uint64, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateHydrating {
		return "", 0, false
	}
	if o.state == StateAuthenticated {
		if id, signedIn := o.auth.Current(); signedIn {
			uid = id.UID
		}
	}
	return uid, o.generation, true
}

// beginLocalHydration moves to the hydrating state under a new
// generation and loads both stores from local storage. The hydrating
// window applies here too: a save admitted mid-load would land on disk
// only to be shadowed in memory by the adopted snapshot.
func (o *Orchestrator) beginLocalHydration() {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.state = StateHydrating
	o.mu.Unlock()

	go o.hydrate(gen, "", StateAnonymous)
}

// beginCloudHydration moves to the hydrating state under a new
// generation and loads both stores for the signed in user.
func (o *Orchestrator) beginCloudHydration(id auth.Identity) {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.state = StateHydrating
	o.mu.Unlock()

	go o.hydrate(gen, id.UID, StateAuthenticated)
}

// hydrate loads both stores for the given identity, emits adoption
// events, and settles into the final state. Results are discarded
// whenever the generation moved on while a load was in flight.
func (o *Orchestrator) hydrate(gen uint64, uid string, final State) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tasks, tasksFromCloud, tasksNeedWriteBack := o.resolveTasks(ctx, uid)
	settings, settingsFromCloud, settingsNeedWriteBack := o.resolveSettings(ctx, uid)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.state = final
	o.mu.Unlock()

	o.emit(TasksHydratedMsg{Tasks: tasks, FromCloud: tasksFromCloud})
	o.emit(SettingsHydratedMsg{Settings: settings, FromCloud: settingsFromCloud})
	o.emit(HydrationDoneMsg{State: final})

	// A signed in user with no cloud document gets their adopted data
	// written up exactly once, so the next device sees it.
	if uid != "" && tasksNeedWriteBack {
		o.enqueue(saveJob{kind: StoreTasks, uid: uid, generation: gen, tasks: tasks})
	}
	if uid != "" && settingsNeedWriteBack {
		o.enqueue(saveJob{kind: StoreSettings, uid: uid, generation: gen, settings: settings})
	}
}

// resolveTasks picks the task list for an identity: the identity's own
// store first, then local data, then the starter tasks.
func (o *Orchestrator) resolveTasks(ctx context.Context, uid string) (tasks []model.Task, fromCloud, needWriteBack bool) {
	res := o.gateway.LoadTasks(ctx, uid)
	if res.Exists {
		return res.Tasks, uid != "", false
	}
	if uid != "" {
		if local := o.gateway.LocalTasks(ctx); local.Exists {
			return local.Tasks, false, true
		}
	}
	return model.SampleTasks(), false, true
}

// resolveSettings picks the slot settings for an identity with the same
// precedence as resolveTasks.
func (o *Orchestrator) resolveSettings(ctx context.Context, uid string) (settings model.SlotSettings, fromCloud, needWriteBack bool) {
	res := o.gateway.LoadSettings(ctx, uid)
	if res.Exists {
		return res.Settings, uid != "", false
	}
	if uid != "" {
		if local := o.gateway.LocalSettings(ctx); local.Exists {
			return local.Settings, false, true
		}
	}
	return model.DefaultSlotSettings(), false, true
}

// saveWorker drains the save queue one job at a time.
func (o *Orchestrator) saveWorker() {
	for {
		select {
		case <-o.stopCh:
			return
		case job := <-o.saveCh:
			o.runSave(job)
		}
	}
}

// runSave executes one save unless its identity generation went stale
// while it sat in the queue.
func (o *Orchestrator) runSave(job saveJob) {
	o.mu.Lock()
	stale := job.generation != o.generation
	o.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var dest persist.Destination
	var err error
	switch job.kind {
	case StoreTasks:
		dest, err = o.gateway.SaveTasks(ctx, job.uid, job.tasks)
	case StoreSettings:
		dest, err = o.gateway.SaveSettings(ctx, job.uid, job.settings)
	}

	o.emit(SaveResultMsg{
		Store:       job.kind,
		Destination: dest,
		Status:      saveStatus(dest, err),
		Err:         err,
	})
}

// saveStatus renders the passive status line text for a save outcome.
func saveStatus(dest persist.Destination, err error) string {
	if err != nil {
		return "save failed"
	}
	switch dest {
	case persist.DestCloud:
		return "synced to cloud"
	case persist.DestLocalFallback:
		return "cloud unavailable, saved locally"
	default:
		return "saved locally"
	}
}

// enqueue queues a save without blocking.
func (o *Orchestrator) enqueue(job saveJob) {
	select {
	case o.saveCh <- job:
	default:
		// Queue full; drop rather than stall the UI loop.
	}
}

// emit sends an event without blocking.
func (o *Orchestrator) emit(msg tea.Msg) {
	select {
	case o.eventCh <- msg:
	default:
	}
}

// waitForEvent returns a tea.Cmd that waits for the next event from
// the event channel.
func (o *Orchestrator) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-o.eventCh
		if !ok {
			return nil
		}
		return msg
	}
}
