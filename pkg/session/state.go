package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// State is the mutable store of one recognition session. Its methods are the
// only mutation path. Events are applied in call order; nothing is reordered
// or deduplicated, and events arriving after Reset or ClearResult are applied
// to the cleared state.
type State struct {
	mu sync.Mutex

	prompt string
	result *RecognitionResult

	loading bool

	logs      []string
	streaming bool

	logger *slog.Logger

	nextID      int
	subscribers map[int]chan Snapshot
}

type Option func(*State)

func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

func New(options ...Option) *State {
	s := &State{
		logs: []string{},

		subscribers: make(map[int]chan Snapshot),
	}

	for _, option := range options {
		option(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

func (s *State) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.prompt
}

// RecognitionResult returns a copy of the current result, or nil if absent.
func (s *State) RecognitionResult() *RecognitionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result.clone()
}

func (s *State) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

func (s *State) StreamingLogs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.logs)
}

func (s *State) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.streaming
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

func (s *State) SetPrompt(prompt string) {
	s.update(func() {
		s.prompt = prompt
	})
}

// SetRecognitionResult replaces the result as a whole.
func (s *State) SetRecognitionResult(result RecognitionResult) {
	s.update(func() {
		s.result = result.clone()
	})
}

func (s *State) SetLoading(loading bool) {
	s.update(func() {
		s.loading = loading
	})
}

// BeginLoading sets loading and reports true only if the session was idle.
// Concurrent callers see exactly one winner.
func (s *State) BeginLoading() bool {
	started := false

	s.update(func() {
		if s.loading {
			return
		}

		s.loading = true
		started = true
	})

	return started
}

// ClearResult drops the result and the streaming log. Prompt and loading are kept.
func (s *State) ClearResult() {
	s.update(func() {
		s.result = nil
		s.logs = []string{}
		s.streaming = false
	})
}

// ReplaceRecognizedText swaps the recognized text if the result still holds
// previous and no recognition is running. It reports whether the text was
// replaced.
func (s *State) ReplaceRecognizedText(previous, text string) bool {
	replaced := false

	s.update(func() {
		if s.loading || s.result == nil || s.result.RecognizedText != previous {
			return
		}

		s.result.RecognizedText = text
		replaced = true
	})

	return replaced
}

func (s *State) AddStreamingLog(message string) {
	s.update(func() {
		s.logs = append(s.logs, message)
	})
}

// Reset restores the initial empty state.
func (s *State) Reset() {
	s.update(func() {
		s.prompt = ""
		s.result = nil
		s.loading = false
		s.logs = []string{}
		s.streaming = false
	})
}

// UpdateStreamingProgress applies one streaming event.
func (s *State) UpdateStreamingProgress(progress StreamingProgress) {
	s.update(func() {
		s.applyProgress(progress)
	})
}

func (s *State) applyProgress(progress StreamingProgress) {
	switch progress.Type {
	case ProgressTypeStart:
		s.streaming = true
		s.logs = append(s.logs, orDefault(progress.Message, DefaultStartMessage))

	case ProgressTypeProgress:
		s.logs = append(s.logs, orDefault(progress.Message, DefaultProgressMessage))

	case ProgressTypeSuccess:
		s.streaming = false
		s.logs = append(s.logs, SuccessMessage)

		s.logger.Debug("received success event", "progress", progress)

		if s.result == nil {
			s.logger.Error("recognition result is absent, success event not applied")
			return
		}

		confidence := progress.Confidence

		if confidence == 0 {
			confidence = DefaultConfidence
		}

		s.result.RecognizedText = progress.RecognizedText
		s.result.Confidence = confidence
		s.result.ProcessingTime = Ptr(progress.ProcessingTime)
		s.result.IsProcessing = Ptr(false)

		s.logger.Debug("recognition result updated", "result", s.result)

	case ProgressTypeError:
		s.streaming = false
		s.logs = append(s.logs, ErrorPrefix+orDefault(progress.Message, DefaultErrorMessage))

		if s.result != nil {
			s.result.IsProcessing = Ptr(false)
		}

	default:
		s.logger.Warn("ignoring streaming event of unknown type", "type", progress.Type)
	}
}

// Subscribe delivers a snapshot after every mutation until ctx is done.
// Slow subscribers only see the most recent snapshots. ctx must be
// cancelled to release the subscription and close the channel.
func (s *State) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 16)

	s.mu.Lock()

	id := s.nextID
	s.nextID++

	s.subscribers[id] = ch

	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
		close(ch)
	}()

	return ch
}

func (s *State) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()

	if len(s.subscribers) == 0 {
		return
	}

	snapshot := s.snapshot()

	for _, ch := range s.subscribers {
		publish(ch, snapshot)
	}
}

func (s *State) snapshot() Snapshot {
	return Snapshot{
		Prompt:            s.prompt,
		RecognitionResult: s.result.clone(),
		IsLoading:         s.loading,
		StreamingLogs:     slices.Clone(s.logs),
		IsStreaming:       s.streaming,
	}
}

func publish(ch chan Snapshot, snapshot Snapshot) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}

	return val
}
