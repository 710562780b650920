package playback

// Entry is one item of the play queue.
type Entry struct {
	Source string `json:"source"`
	Song   string `json:"song"`
}

// State is the observable player state.
type State struct {
	Source  string  `json:"source"`
	Song    string  `json:"song"`
	Playing bool    `json:"playing"`
	Queue   []Entry `json:"queue"`
	// Position is the index of the current entry in Queue.
	Position int `json:"position"`
}

// Idle reports whether nothing is loaded.
func (s State) Idle() bool {
	return s.Source == ""
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	c := s
	c.Queue = make([]Entry, len(s.Queue))
	copy(c.Queue, s.Queue)
	return c
}

// Status describes the playing flag the way notifications phrase it.
func (s State) Status() string {
	if s.Playing {
		return "playing"
	}
	return "paused"
}
