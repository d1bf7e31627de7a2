package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/disgoorg/snowflake/v2"

	"musebot/internal/core"
	"musebot/internal/i18n"
)

const (
	testGuild = snowflake.ID(1001)
	testVoice = snowflake.ID(3003)
)

type fakeOptions map[string]any

func (o fakeOptions) OptString(name string) (string, bool) {
	v, ok := o[name].(string)
	return v, ok
}

func (o fakeOptions) OptInt(name string) (int, bool) {
	v, ok := o[name].(int)
	return v, ok
}

func (o fakeOptions) OptBool(name string) (bool, bool) {
	v, ok := o[name].(bool)
	return v, ok
}

type fakePlayer struct {
	playResult core.PlayResult
	err        error
	removed    []core.QueuedSong
	changed    bool
	snapshot   core.Snapshot

	lastPlay   core.PlayRequest
	lastSkip   int
	lastIndex  int
	lastCount  int
	lastVolume int
	autoplay   bool
	teardowns  int
}

func (p *fakePlayer) Play(_ context.Context, req core.PlayRequest) (core.PlayResult, error) {
	p.lastPlay = req
	return p.playResult, p.err
}

func (p *fakePlayer) Skip(_ context.Context, _ snowflake.ID, n int) ([]core.QueuedSong, error) {
	p.lastSkip = n
	return p.removed, p.err
}

func (p *fakePlayer) Remove(_ context.Context, _ snowflake.ID, index, count int) ([]core.QueuedSong, error) {
	p.lastIndex, p.lastCount = index, count
	return p.removed, p.err
}

func (p *fakePlayer) Pause(context.Context, snowflake.ID) (bool, error)  { return p.changed, p.err }
func (p *fakePlayer) Resume(context.Context, snowflake.ID) (bool, error) { return p.changed, p.err }

func (p *fakePlayer) Snapshot(context.Context, snowflake.ID) (core.Snapshot, error) {
	return p.snapshot, p.err
}

func (p *fakePlayer) Teardown(context.Context, snowflake.ID) error {
	p.teardowns++
	return p.err
}

func (p *fakePlayer) SetVolume(_ context.Context, _ snowflake.ID, percent int) error {
	p.lastVolume = percent
	return p.err
}

func (p *fakePlayer) SetAutoplay(_ context.Context, _ snowflake.ID, enabled bool) error {
	p.autoplay = enabled
	return p.err
}

func (p *fakePlayer) ActiveGuilds() int { return 2 }

func newTestCommands(player *fakePlayer) *commandSet {
	return newCommandSet(player, i18n.NewLocalizer(i18n.DefaultLanguage), func() int { return 7 })
}

func inVoice(opts fakeOptions) request {
	voice := testVoice
	return request{guildID: testGuild, username: "alice", voiceChannelID: &voice, options: opts}
}

func TestCommands_Play(t *testing.T) {
	started := core.PlayResult{Songs: queuedSongs(1), Started: true}
	queuedAt3 := core.PlayResult{Songs: queuedSongs(1), Position: 3}
	playlist := core.PlayResult{Songs: queuedSongs(40), Started: true}

	tests := []struct {
		name      string
		req       request
		result    core.PlayResult
		wantReply string
		wantIndex int
		wantErr   error
	}{
		{
			name:      "Starts playing",
			req:       inVoice(fakeOptions{"query": "song 1"}),
			result:    started,
			wantReply: "Playing **Song 1** by Artist",
			wantIndex: -1,
		},
		{
			name:      "Queues at a position",
			req:       inVoice(fakeOptions{"query": "song 1", "position": 3}),
			result:    queuedAt3,
			wantReply: "Queued **Song 1** by Artist at position 3",
			wantIndex: 2,
		},
		{
			name:      "Playlist",
			req:       inVoice(fakeOptions{"query": "https://www.youtube.com/playlist?list=PL1"}),
			result:    playlist,
			wantReply: "Queued 40 songs starting with **Song 1**",
			wantIndex: -1,
		},
		{
			name:    "Requires voice",
			req:     request{guildID: testGuild, options: fakeOptions{"query": "song 1"}},
			wantErr: errNotInVoice,
		},
		{
			name:    "Rejects position zero",
			req:     inVoice(fakeOptions{"query": "song 1", "position": 0}),
			wantErr: core.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{playResult: tt.result}
			reply, err := newTestCommands(player).play(t.Context(), tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("play() error = %v, want %v", err, tt.wantErr)
				}
				if player.lastPlay.Query != "" {
					t.Error("play() should not reach the player")
				}
				return
			}
			if err != nil {
				t.Fatalf("play() error: %v", err)
			}
			if !strings.Contains(reply, tt.wantReply) {
				t.Errorf("play() = %q, want it to contain %q", reply, tt.wantReply)
			}
			if player.lastPlay.Index != tt.wantIndex {
				t.Errorf("play() index = %d, want %d", player.lastPlay.Index, tt.wantIndex)
			}
			if player.lastPlay.ChannelID != testVoice || player.lastPlay.Requester != "alice" {
				t.Errorf("play() request = %+v", player.lastPlay)
			}
		})
	}
}

func TestCommands_PlayPassesErrorsThrough(t *testing.T) {
	player := &fakePlayer{err: core.ErrUnsupportedDomain}

	_, err := newTestCommands(player).play(t.Context(), inVoice(fakeOptions{"query": "https://example.com"}))
	if !errors.Is(err, core.ErrUnsupportedDomain) {
		t.Errorf("play() error = %v, want %v", err, core.ErrUnsupportedDomain)
	}
}

func TestCommands_Skip(t *testing.T) {
	player := &fakePlayer{removed: queuedSongs(3)}
	commands := newTestCommands(player)

	reply, err := commands.skip(t.Context(), inVoice(fakeOptions{"amount": 3}))
	if err != nil {
		t.Fatalf("skip() error: %v", err)
	}
	if player.lastSkip != 3 || !strings.Contains(reply, "Skipped 3") {
		t.Errorf("skip() = %q with n = %d", reply, player.lastSkip)
	}

	if _, err := commands.skip(t.Context(), inVoice(fakeOptions{})); err != nil || player.lastSkip != 1 {
		t.Errorf("skip() default amount = %d, %v, want 1", player.lastSkip, err)
	}

	if _, err := commands.skip(t.Context(), inVoice(fakeOptions{"amount": 0})); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("skip(0) error = %v, want %v", err, core.ErrInvalidArgument)
	}
}

func TestCommands_Remove(t *testing.T) {
	t.Run("Removes from a one based position", func(t *testing.T) {
		player := &fakePlayer{removed: queuedSongs(2)}
		reply, err := newTestCommands(player).remove(t.Context(), inVoice(fakeOptions{"position": 4, "count": 2}))
		if err != nil {
			t.Fatalf("remove() error: %v", err)
		}
		if player.lastIndex != 3 || player.lastCount != 2 {
			t.Errorf("remove() index, count = %d, %d, want 3, 2", player.lastIndex, player.lastCount)
		}
		if !strings.Contains(reply, "Removed 2") {
			t.Errorf("remove() = %q", reply)
		}
	})

	t.Run("Nothing at the position", func(t *testing.T) {
		_, err := newTestCommands(&fakePlayer{}).remove(t.Context(), inVoice(fakeOptions{"position": 9}))
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("remove() error = %v, want %v", err, core.ErrInvalidArgument)
		}
	})
}

func TestCommands_PauseResume(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*commandSet, context.Context, request) (string, error)
		changed bool
		want    string
	}{
		{"Pause", (*commandSet).pause, true, "Paused"},
		{"Pause twice", (*commandSet).pause, false, "Already paused."},
		{"Resume", (*commandSet).resume, true, "Resumed"},
		{"Resume unpaused", (*commandSet).resume, false, "Playback isn't paused."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := newTestCommands(&fakePlayer{changed: tt.changed})
			reply, err := tt.run(commands, t.Context(), inVoice(fakeOptions{}))
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !strings.Contains(reply, tt.want) {
				t.Errorf("reply = %q, want it to contain %q", reply, tt.want)
			}
		})
	}
}

func TestCommands_Stop(t *testing.T) {
	player := &fakePlayer{}
	if _, err := newTestCommands(player).stop(t.Context(), inVoice(fakeOptions{})); err != nil {
		t.Fatalf("stop() error: %v", err)
	}
	if player.teardowns != 1 {
		t.Errorf("stop() teardowns = %d, want 1", player.teardowns)
	}

	player = &fakePlayer{err: core.ErrNotConnected}
	if _, err := newTestCommands(player).stop(t.Context(), inVoice(fakeOptions{})); !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("stop() error = %v, want %v", err, core.ErrNotConnected)
	}
}

func TestCommands_Queue(t *testing.T) {
	current := queued(0)
	player := &fakePlayer{snapshot: core.Snapshot{Current: &current, Items: queuedSongs(7)}}
	commands := newTestCommands(player)

	reply, err := commands.queue(t.Context(), inVoice(fakeOptions{"page": 2}))
	if err != nil {
		t.Fatalf("queue() error: %v", err)
	}
	if !strings.Contains(reply, "`6.`") || !strings.Contains(reply, "Page 2/2") {
		t.Errorf("queue() = %q, want positions 6 and 7 on page 2", reply)
	}

	if _, err := commands.queue(t.Context(), inVoice(fakeOptions{"page": 3})); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("queue(3) error = %v, want %v", err, core.ErrInvalidArgument)
	}
}

func TestCommands_VolumeAndAutoplay(t *testing.T) {
	player := &fakePlayer{}
	commands := newTestCommands(player)

	reply, err := commands.volume(t.Context(), inVoice(fakeOptions{"amount": 120}))
	if err != nil {
		t.Fatalf("volume() error: %v", err)
	}
	if player.lastVolume != 120 || !strings.Contains(reply, "120%") {
		t.Errorf("volume() = %q with %d", reply, player.lastVolume)
	}

	reply, err = commands.autoplay(t.Context(), inVoice(fakeOptions{"enabled": true}))
	if err != nil {
		t.Fatalf("autoplay() error: %v", err)
	}
	if !player.autoplay || !strings.Contains(reply, "Autoplay is on") {
		t.Errorf("autoplay() = %q with %v", reply, player.autoplay)
	}
}

func TestCommands_Stats(t *testing.T) {
	reply, err := newTestCommands(&fakePlayer{}).stats(t.Context(), request{})
	if err != nil {
		t.Fatalf("stats() error: %v", err)
	}
	for _, want := range []string{"Uptime: 0 day(s)", "Servers: 7", "Active sessions: 2"} {
		if !strings.Contains(reply, want) {
			t.Errorf("stats() = %q, want it to contain %q", reply, want)
		}
	}
}

func TestDefinitionsCoverHandlers(t *testing.T) {
	commands := newTestCommands(&fakePlayer{})
	defined := definitions()

	if len(defined) != len(commands.handlers) {
		t.Errorf("%d commands defined, %d handled", len(defined), len(commands.handlers))
	}
	for _, definition := range defined {
		if _, ok := commands.handlers[definition.CommandName()]; !ok {
			t.Errorf("command %q has no handler", definition.CommandName())
		}
	}
}
