package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// PlayRequest asks to resolve Query and queue the result in a guild.
type PlayRequest struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID // Voice channel of the requester
	Query     string
	Requester string
	Index     int // Zero based insert position, negative appends
}

// PlayResult reports what a play request queued.
type PlayResult struct {
	Songs []QueuedSong
	// Started is true when an inserted song began playing right away.
	Started bool
	// Position is the one based queue position of the first song, zero when it started.
	Position int
}

// ManagerDeps are the collaborators shared by every guild.
type ManagerDeps struct {
	Resolver *Resolver
	Matcher  *Matcher
	Media    MediaProvider
	Engine   Engine
	Settings SettingsStore
	History  History
	Notifier Notifier
	Recorder Recorder
}

// Manager is the registry of guild controllers. Controllers are created on
// first use and removed when they tear down.
type Manager struct {
	deps   ManagerDeps
	config AppConfig
	logger *zap.Logger

	mutex  sync.Mutex
	guilds map[snowflake.ID]*Controller
	// playQueues serialize play requests per guild, resolution included, so
	// songs are queued in the order the requests arrived. They outlive controllers.
	playQueues map[snowflake.ID]*playQueue
}

// NewManager creates an empty registry.
func NewManager(config AppConfig, deps ManagerDeps, logger *zap.Logger) *Manager {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &Manager{
		deps:       deps,
		config:     config,
		logger:     logger,
		guilds:     make(map[snowflake.ID]*Controller),
		playQueues: make(map[snowflake.ID]*playQueue),
	}
}

// Attach sets the engine and notifier used by controllers created afterwards.
// Both depend on the Discord client, which in turn needs the manager.
func (m *Manager) Attach(engine Engine, notifier Notifier) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.deps.Engine = engine
	m.deps.Notifier = notifier
}

// Start blocks until ctx is done, then tears every guild down.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	m.Shutdown(context.Background())
	return nil
}

// Play resolves the query, joins the requester's channel and queues the songs.
// Resolution errors are returned unchanged.
func (m *Manager) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	queue := m.playQueue(req.GuildID)
	if ahead := queue.size(); ahead > 0 {
		m.logger.Debug("Play request waiting for earlier requests",
			zap.Stringer("guild", req.GuildID),
			zap.Int("ahead", ahead))
	}
	release, err := queue.acquire(ctx)
	if err != nil {
		return PlayResult{}, err
	}
	defer release()

	songs, err := m.deps.Resolver.Resolve(ctx, req.Query)
	if err != nil {
		return PlayResult{}, err
	}

	result, err := m.enqueue(ctx, req, songs)
	if errors.Is(err, ErrSessionClosed) {
		// The idle timer tore the guild down while we were resolving.
		result, err = m.enqueue(ctx, req, songs)
	}
	return result, err
}

func (m *Manager) enqueue(ctx context.Context, req PlayRequest, songs []Song) (PlayResult, error) {
	controller, err := m.controller(ctx, req.GuildID)
	if err != nil {
		return PlayResult{}, err
	}

	if err := controller.Join(ctx, req.ChannelID); err != nil {
		return PlayResult{}, err
	}

	return controller.Enqueue(ctx, songs, req.Requester, req.Index)
}

// Controller returns the guild's controller if the guild has a session.
func (m *Manager) Controller(guildID snowflake.ID) (*Controller, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	controller, ok := m.guilds[guildID]
	return controller, ok
}

// Teardown stops the guild's session. Returns ErrNotConnected when there is none.
func (m *Manager) Teardown(ctx context.Context, guildID snowflake.ID) error {
	controller, ok := m.Controller(guildID)
	if !ok {
		return ErrNotConnected
	}
	return controller.Teardown(ctx)
}

// Skip skips the current song and n-1 queued songs in the guild.
func (m *Manager) Skip(ctx context.Context, guildID snowflake.ID, n int) ([]QueuedSong, error) {
	controller, ok := m.Controller(guildID)
	if !ok {
		return nil, ErrNotConnected
	}
	removed, err := controller.Skip(ctx, n)
	return removed, notConnected(err)
}

// Remove deletes count queued songs starting at the zero based index.
func (m *Manager) Remove(ctx context.Context, guildID snowflake.ID, index, count int) ([]QueuedSong, error) {
	controller, ok := m.Controller(guildID)
	if !ok {
		return nil, ErrNotConnected
	}
	removed, err := controller.Remove(ctx, index, count)
	return removed, notConnected(err)
}

// Pause pauses the guild. It reports false when already paused.
func (m *Manager) Pause(ctx context.Context, guildID snowflake.ID) (bool, error) {
	controller, ok := m.Controller(guildID)
	if !ok {
		return false, ErrNotConnected
	}
	changed, err := controller.Pause(ctx)
	return changed, notConnected(err)
}

// Resume resumes the guild. It reports false when not paused.
func (m *Manager) Resume(ctx context.Context, guildID snowflake.ID) (bool, error) {
	controller, ok := m.Controller(guildID)
	if !ok {
		return false, ErrNotConnected
	}
	changed, err := controller.Resume(ctx)
	return changed, notConnected(err)
}

// Snapshot returns the guild's queue and playback state.
func (m *Manager) Snapshot(ctx context.Context, guildID snowflake.ID) (Snapshot, error) {
	controller, ok := m.Controller(guildID)
	if !ok {
		return Snapshot{}, ErrNotConnected
	}
	snap, err := controller.Snapshot(ctx)
	return snap, notConnected(err)
}

// SetVolume persists and applies the guild's volume.
func (m *Manager) SetVolume(ctx context.Context, guildID snowflake.ID, percent int) error {
	if percent < 0 || percent > MaxVolume {
		return fmt.Errorf("%w: volume must be between 0 and %d", ErrInvalidArgument, MaxVolume)
	}
	if err := m.deps.Settings.SetVolume(ctx, guildID, percent); err != nil {
		return err
	}
	if controller, ok := m.Controller(guildID); ok {
		return ignoreClosed(controller.SetVolume(ctx, percent))
	}
	return nil
}

// SetAutoplay persists and applies the guild's autoplay flag.
func (m *Manager) SetAutoplay(ctx context.Context, guildID snowflake.ID, enabled bool) error {
	if err := m.deps.Settings.SetAutoplay(ctx, guildID, enabled); err != nil {
		return err
	}
	if controller, ok := m.Controller(guildID); ok {
		return ignoreClosed(controller.SetAutoplay(ctx, enabled))
	}
	return nil
}

// ActiveGuilds returns the number of guilds with a live controller.
func (m *Manager) ActiveGuilds() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.guilds)
}

// Shutdown tears down every guild.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mutex.Lock()
	controllers := make([]*Controller, 0, len(m.guilds))
	for _, controller := range m.guilds {
		controllers = append(controllers, controller)
	}
	m.mutex.Unlock()

	for _, controller := range controllers {
		if err := controller.Teardown(ctx); err != nil {
			m.logger.Warn("Failed to tear down guild",
				zap.Stringer("guild", controller.GuildID()),
				zap.Error(err))
		}
	}
}

func (m *Manager) playQueue(guildID snowflake.ID) *playQueue {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	queue, ok := m.playQueues[guildID]
	if !ok {
		queue = newPlayQueue()
		m.playQueues[guildID] = queue
	}
	return queue
}

// controller returns the guild's controller, creating it on first use.
func (m *Manager) controller(ctx context.Context, guildID snowflake.ID) (*Controller, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if controller, ok := m.guilds[guildID]; ok {
		return controller, nil
	}

	settings, err := m.deps.Settings.Get(ctx, guildID)
	if err != nil {
		m.logger.Warn("Failed to load guild settings, using defaults",
			zap.Stringer("guild", guildID),
			zap.Error(err))
		settings = GuildSettings{Volume: m.config.DefaultVolume}
	}

	controller := NewController(guildID, settings, m.config.IdleTimeout, ControllerDeps{
		Engine:   m.deps.Engine,
		Matcher:  m.deps.Matcher,
		Media:    m.deps.Media,
		Notifier: m.deps.Notifier,
		History:  m.deps.History,
		Logger:   m.logger.Named("controller"),
	}, m.remove)

	m.guilds[guildID] = controller
	m.deps.Recorder.SetActiveSessions(len(m.guilds))

	m.logger.Debug("Created guild controller", zap.Stringer("guild", guildID))
	return controller, nil
}

// remove is the controllers' teardown hook.
func (m *Manager) remove(guildID snowflake.ID, controller *Controller) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, ok := m.guilds[guildID]; ok && current == controller {
		delete(m.guilds, guildID)
	}
	m.deps.Recorder.SetActiveSessions(len(m.guilds))
}

func ignoreClosed(err error) error {
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

// notConnected reports a controller closed under our feet as not connected.
func notConnected(err error) error {
	if errors.Is(err, ErrSessionClosed) {
		return ErrNotConnected
	}
	return err
}

// playQueue admits requests one at a time in arrival order.
type playQueue struct {
	sem     *semaphore.Weighted
	pending atomic.Int32
}

func newPlayQueue() *playQueue {
	return &playQueue{sem: semaphore.NewWeighted(1)}
}

// acquire blocks until every earlier request has released. A request whose
// ctx ends while waiting leaves the queue without disturbing the others.
func (q *playQueue) acquire(ctx context.Context) (func(), error) {
	q.pending.Add(1)
	if err := q.sem.Acquire(ctx, 1); err != nil {
		q.pending.Add(-1)
		return nil, err
	}
	return func() {
		q.pending.Add(-1)
		q.sem.Release(1)
	}, nil
}

// size returns the number of requests holding or waiting for their turn.
func (q *playQueue) size() int {
	return int(q.pending.Load())
}
