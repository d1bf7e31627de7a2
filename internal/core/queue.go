package core

// Queue is one guild's ordered sequence of pending songs plus the song currently
// bound to the playback engine. The current song is never part of the sequence.
// A Queue is not safe for concurrent use; its Controller serializes access.
type Queue struct {
	current *QueuedSong
	items   []QueuedSong
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Current returns the playing song, or nil when nothing plays.
func (q *Queue) Current() *QueuedSong {
	return q.current
}

// SetCurrent binds a song as the playing one. Nil clears it.
func (q *Queue) SetCurrent(song *QueuedSong) {
	q.current = song
}

// Len returns the number of pending songs.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the pending songs in playback order.
func (q *Queue) Items() []QueuedSong {
	out := make([]QueuedSong, len(q.items))
	copy(out, q.items)
	return out
}

// Insert places songs at index, keeping their relative order. A negative index
// appends; an index past the end is clamped to the end.
func (q *Queue) Insert(index int, songs ...QueuedSong) {
	if len(songs) == 0 {
		return
	}
	if index < 0 || index > len(q.items) {
		index = len(q.items)
	}

	items := make([]QueuedSong, 0, len(q.items)+len(songs))
	items = append(items, q.items[:index]...)
	items = append(items, songs...)
	items = append(items, q.items[index:]...)
	q.items = items
}

// Pop removes and returns the head of the sequence.
func (q *Queue) Pop() (QueuedSong, bool) {
	if len(q.items) == 0 {
		return QueuedSong{}, false
	}
	head := q.items[0]
	q.items[0] = QueuedSong{}
	q.items = q.items[1:]
	return head, true
}

// Remove deletes up to count songs starting at index from the sequence and
// returns them. Out of range arguments remove what is available.
func (q *Queue) Remove(index, count int) []QueuedSong {
	if index < 0 || count <= 0 || index >= len(q.items) {
		return nil
	}
	end := min(index+count, len(q.items))

	removed := make([]QueuedSong, end-index)
	copy(removed, q.items[index:end])
	q.items = append(q.items[:index:index], q.items[end:]...)
	return removed
}

// Skip removes the current song and the next n-1 pending songs, returning them
// current first. The current song is nil afterwards.
func (q *Queue) Skip(n int) []QueuedSong {
	if n < 1 {
		n = 1
	}

	var removed []QueuedSong
	if q.current != nil {
		removed = append(removed, *q.current)
		q.current = nil
	}
	return append(removed, q.Remove(0, n-1)...)
}

// Clear drops the current song and every pending song.
func (q *Queue) Clear() {
	q.current = nil
	q.items = nil
}

// Empty reports whether nothing plays and nothing is pending.
func (q *Queue) Empty() bool {
	return q.current == nil && len(q.items) == 0
}
