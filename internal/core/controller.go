package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const (
	// operationTimeout bounds engine and provider calls the controller makes on its own
	operationTimeout = 30 * time.Second
	// closeTimeout bounds disconnecting from the engine on teardown
	closeTimeout = 10 * time.Second
	// AutoplayRequester is the requester recorded for songs queued by autoplay
	AutoplayRequester = "autoplay"
)

// ControllerDeps are the collaborators of a Controller.
type ControllerDeps struct {
	Engine   Engine
	Matcher  *Matcher
	Media    MediaProvider // Used for autoplay, may be nil
	Notifier Notifier
	History  History // May be nil
	Logger   *zap.Logger
}

// Snapshot is a copy of a controller's state.
type Snapshot struct {
	Current   *QueuedSong
	Items     []QueuedSong
	State     PlaybackState
	Settings  GuildSettings
	ChannelID snowflake.ID
}

// Controller owns one guild's queue and playback session. Every command,
// engine event and timer firing runs on the controller's own goroutine in the
// order it was received, so queue state needs no locking.
type Controller struct {
	guildID     snowflake.ID
	deps        ControllerDeps
	logger      *zap.Logger
	idleTimeout time.Duration
	onTeardown  func(snowflake.ID, *Controller)

	mailbox chan func()
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	// Owned by run.
	queue       *Queue
	session     Session
	settings    GuildSettings
	paused      bool
	awaitingEnd bool
	lastPlayed  *Song
	idleTimer   *time.Timer
	idleGen     uint64
	closed      bool
}

// NewController starts a controller for guildID. onTeardown runs once, on the
// controller goroutine, after the session is gone.
func NewController(guildID snowflake.ID, settings GuildSettings, idleTimeout time.Duration,
	deps ControllerDeps, onTeardown func(snowflake.ID, *Controller)) *Controller {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		guildID:     guildID,
		deps:        deps,
		logger:      deps.Logger.With(zap.Stringer("guild", guildID)),
		idleTimeout: idleTimeout,
		onTeardown:  onTeardown,
		mailbox:     make(chan func()),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		queue:       NewQueue(),
		settings:    settings,
	}

	go c.run()
	return c
}

// GuildID returns the guild this controller serves.
func (c *Controller) GuildID() snowflake.ID {
	return c.guildID
}

// Done is closed once the controller has torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) run() {
	for task := range c.mailbox {
		task()
		if c.closed {
			return
		}
	}
}

// do runs fn on the controller goroutine and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.mailbox <- task:
	case <-c.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

// post queues fn without waiting. Dropped once the controller is closed.
func (c *Controller) post(fn func()) {
	select {
	case c.mailbox <- fn:
	case <-c.done:
	}
}

func (c *Controller) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, operationTimeout)
}

// Join connects to channelID, reusing the session when already there and
// moving it when connected elsewhere.
func (c *Controller) Join(ctx context.Context, channelID snowflake.ID) error {
	var err error
	if doErr := c.do(ctx, func() { err = c.join(ctx, channelID) }); doErr != nil {
		return doErr
	}
	return err
}

func (c *Controller) join(ctx context.Context, channelID snowflake.ID) error {
	if c.session != nil {
		if c.session.ChannelID() == channelID {
			return nil
		}
		if err := c.session.Move(ctx, channelID); err != nil {
			return fmt.Errorf("failed to move to voice channel: %w", err)
		}
		return nil
	}

	session, err := c.deps.Engine.Join(ctx, c.guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	c.session = session

	if err := session.SetVolume(ctx, c.settings.Volume); err != nil {
		c.logger.Warn("Failed to apply volume", zap.Int("volume", c.settings.Volume), zap.Error(err))
	}

	go c.forwardEvents(session)

	// A join with nothing to play must not hold the channel forever.
	if c.queue.Empty() {
		c.armIdleTimer()
	}

	c.logger.Info("Joined voice channel", zap.Stringer("channel", channelID))
	return nil
}

func (c *Controller) forwardEvents(session Session) {
	events := session.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			c.post(func() { c.handleEvent(session, event) })
		case <-c.done:
			return
		}
	}
}

func (c *Controller) handleEvent(session Session, event PlayerEvent) {
	if c.closed || session != c.session {
		return
	}

	switch event.Type {
	case EventTrackStart:
		if current := c.queue.Current(); current != nil {
			c.deps.Notifier.NowPlaying(c.guildID, *current)
		}
	case EventTrackEnd:
		if !event.Reason.Advances() {
			return
		}
		if current := c.queue.Current(); event.Reason == EndReasonLoadFailed && current != nil {
			c.logger.Warn("Track failed to load, skipping",
				zap.String("title", current.Title),
				zap.String("url", current.URL))
			c.deps.Notifier.TrackNotFound(c.guildID, *current)
		}
		c.queue.SetCurrent(nil)
		c.advance()
	}
}

// Enqueue inserts songs at index (negative appends) and starts playback when
// the guild is idle. Started is set only when an inserted song became current.
func (c *Controller) Enqueue(ctx context.Context, songs []Song, requester string, index int) (PlayResult, error) {
	var (
		result PlayResult
		err    error
	)
	doErr := c.do(ctx, func() {
		if c.session == nil {
			err = ErrNotConnected
			return
		}

		if index < 0 || index > c.queue.Len() {
			index = c.queue.Len()
		}
		queued := make([]QueuedSong, len(songs))
		for i, song := range songs {
			queued[i] = QueuedSong{Song: song, GuildID: c.guildID, Requester: requester}
		}
		c.queue.Insert(index, queued...)
		c.cancelIdleTimer()
		result.Songs = queued

		// Idle with nothing pending: the queue held only the inserted songs.
		if c.queue.Current() == nil && !c.awaitingEnd {
			c.advance()
			result.Started = c.queue.Current() != nil
			return
		}
		result.Position = index + 1
	})
	if doErr != nil {
		return PlayResult{}, doErr
	}
	return result, err
}

// advance binds the next playable song to the engine. Songs that cannot be
// matched or played are announced and dropped; an empty queue arms the idle timer.
func (c *Controller) advance() {
	c.awaitingEnd = false
	triedAutoplay := false

	for {
		next, ok := c.queue.Pop()
		if !ok {
			c.queue.SetCurrent(nil)
			if !triedAutoplay && c.queueRelated() {
				triedAutoplay = true
				continue
			}
			c.armIdleTimer()
			return
		}

		c.queue.SetCurrent(&next)
		if err := c.play(next); err != nil {
			c.logger.Warn("Skipping unplayable song",
				zap.String("title", next.Title),
				zap.String("url", next.URL),
				zap.Error(err))
			c.deps.Notifier.TrackNotFound(c.guildID, next)
			c.queue.SetCurrent(nil)
			continue
		}

		c.cancelIdleTimer()
		return
	}
}

func (c *Controller) play(song QueuedSong) error {
	if c.session == nil {
		return ErrNotConnected
	}

	ctx, cancel := c.opContext()
	defer cancel()

	playable, err := c.deps.Matcher.Match(ctx, song.Song)
	if err != nil {
		return err
	}

	if err := c.session.Play(ctx, playable); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	c.paused = false
	c.lastPlayed = &playable
	if c.deps.History != nil {
		c.deps.History.Record(c.guildID, song.Song)
		c.deps.History.Record(c.guildID, playable)
	}
	return nil
}

// queueRelated appends one related song not played recently, when autoplay is on.
func (c *Controller) queueRelated() bool {
	if !c.settings.Autoplay || c.lastPlayed == nil || c.deps.Media == nil {
		return false
	}

	ctx, cancel := c.opContext()
	defer cancel()

	related, err := c.deps.Media.FetchRelated(ctx, c.lastPlayed.URL)
	if err != nil {
		c.logger.Warn("Failed to fetch related songs", zap.Error(err))
		return false
	}

	for _, song := range related {
		if c.deps.History != nil && c.deps.History.Seen(c.guildID, song) {
			continue
		}
		c.queue.Insert(-1, QueuedSong{Song: song, GuildID: c.guildID, Requester: AutoplayRequester})
		c.logger.Debug("Autoplay queued related song", zap.String("title", song.Title))
		return true
	}
	return false
}

// Skip removes the current song and the next n-1 queued songs, then stops the
// engine. The engine's end event advances the queue.
func (c *Controller) Skip(ctx context.Context, n int) ([]QueuedSong, error) {
	var (
		removed []QueuedSong
		err     error
	)
	doErr := c.do(ctx, func() {
		if c.queue.Current() == nil {
			err = ErrNothingPlaying
			return
		}

		removed = c.queue.Skip(n)
		c.awaitingEnd = true
		if stopErr := c.session.Stop(ctx); stopErr != nil {
			c.logger.Warn("Failed to stop track, advancing directly", zap.Error(stopErr))
			c.advance()
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	return removed, err
}

// Remove deletes count queued songs starting at index. The current song is untouched.
func (c *Controller) Remove(ctx context.Context, index, count int) ([]QueuedSong, error) {
	var removed []QueuedSong
	if err := c.do(ctx, func() { removed = c.queue.Remove(index, count) }); err != nil {
		return nil, err
	}
	return removed, nil
}

// Pause pauses playback. It reports false when already paused.
func (c *Controller) Pause(ctx context.Context) (bool, error) {
	return c.setPaused(ctx, true)
}

// Resume resumes playback. It reports false when not paused.
func (c *Controller) Resume(ctx context.Context) (bool, error) {
	return c.setPaused(ctx, false)
}

func (c *Controller) setPaused(ctx context.Context, paused bool) (bool, error) {
	var (
		changed bool
		err     error
	)
	doErr := c.do(ctx, func() {
		if c.queue.Current() == nil {
			err = ErrNothingPlaying
			return
		}
		if c.paused == paused {
			return
		}
		if err = c.session.Pause(ctx, paused); err != nil {
			err = fmt.Errorf("failed to update pause state: %w", err)
			return
		}
		c.paused = paused
		changed = true
	})
	if doErr != nil {
		return false, doErr
	}
	return changed, err
}

// SetVolume changes the session volume in percent.
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > MaxVolume {
		return fmt.Errorf("%w: volume must be between 0 and %d", ErrInvalidArgument, MaxVolume)
	}

	var err error
	doErr := c.do(ctx, func() {
		c.settings.Volume = percent
		if c.session != nil {
			if err = c.session.SetVolume(ctx, percent); err != nil {
				err = fmt.Errorf("failed to set volume: %w", err)
			}
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// SetAutoplay toggles queueing related songs when the queue runs dry.
func (c *Controller) SetAutoplay(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() { c.settings.Autoplay = enabled })
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() {
		snap = Snapshot{
			Items:    c.queue.Items(),
			State:    c.state(),
			Settings: c.settings,
		}
		if current := c.queue.Current(); current != nil {
			cp := *current
			snap.Current = &cp
		}
		if c.session != nil {
			snap.ChannelID = c.session.ChannelID()
		}
	})
	return snap, err
}

func (c *Controller) state() PlaybackState {
	switch {
	case c.queue.Current() == nil:
		return StateIdle
	case c.paused:
		return StatePaused
	default:
		return StatePlaying
	}
}

// Teardown disconnects and discards all queue state. Calling it on a closed
// controller is a no-op.
func (c *Controller) Teardown(ctx context.Context) error {
	err := c.do(ctx, c.teardown)
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

func (c *Controller) teardown() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancelIdleTimer()
	c.queue.Clear()

	if c.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := c.session.Close(ctx); err != nil {
			c.logger.Warn("Failed to close playback session", zap.Error(err))
		}
		cancel()
		c.session = nil
	}

	c.cancel()
	close(c.done)

	if c.deps.History != nil {
		c.deps.History.Forget(c.guildID)
	}
	if c.onTeardown != nil {
		c.onTeardown(c.guildID, c)
	}

	c.logger.Info("Playback session torn down")
}

func (c *Controller) armIdleTimer() {
	c.cancelIdleTimer()
	gen := c.idleGen
	c.idleTimer = time.AfterFunc(c.idleTimeout, func() {
		c.post(func() { c.onIdleTimeout(gen) })
	})
}

// cancelIdleTimer stops the timer and invalidates a firing already in the mailbox.
func (c *Controller) cancelIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.idleGen++
}

func (c *Controller) onIdleTimeout(gen uint64) {
	if c.closed || gen != c.idleGen {
		return
	}
	if c.queue.Current() != nil || c.queue.Len() > 0 || c.awaitingEnd {
		return
	}

	c.logger.Info("No more songs in queue, disconnecting")
	c.deps.Notifier.IdleDisconnect(c.guildID)
	c.teardown()
}
