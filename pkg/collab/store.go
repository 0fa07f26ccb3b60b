package collab

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store owns every domain collection for the process lifetime. All
// operations serialize behind one mutex; each successful mutation publishes
// its events to the bus inside the same critical section, so subscribers
// that attach afterwards are guaranteed to see it either in their snapshot
// or on their live stream, never both and never neither.
//
// Nothing is persisted: a restart starts empty.
type Store struct {
	clock *monotonicClock
	bus   *Bus

	mu             sync.Mutex
	nextChatID     uint64
	nextTaskID     uint64
	nextTimelineID uint64
	chat           []ChatMessage
	tasks          map[uint64]TaskItem
	taskOrder      []uint64
	timeline       []TimelineEvent
	presence       map[string]Presence // keyed by lowercased user
	frames         map[string]ObserverFrame
	frameOrder     []string // paths in observation order
}

// NewStore creates a store backed by the system wall clock.
func NewStore() *Store {
	return NewStoreWithClock(SystemClock{})
}

// NewStoreWithClock creates a store with an explicit time source. The
// source is wrapped to enforce monotonicity, so even a regressing clock
// never produces a timestamp below one already handed out.
func NewStoreWithClock(clock Clock) *Store {
	return &Store{
		clock:    newMonotonicClock(clock),
		bus:      NewBus(),
		tasks:    make(map[uint64]TaskItem),
		presence: make(map[string]Presence),
		frames:   make(map[string]ObserverFrame),
	}
}

// CreateChat appends a chat message and publishes chat.created.
func (s *Store) CreateChat(user, text string) (ChatMessage, error) {
	user, err := requireField("user", user)
	if err != nil {
		return ChatMessage{}, err
	}
	text, err = requireField("text", text)
	if err != nil {
		return ChatMessage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChatID++
	message := ChatMessage{
		ID:          s.nextChatID,
		User:        user,
		Text:        text,
		CreatedAtMs: s.clock.NowMs(),
	}
	s.chat = append(s.chat, message)

	s.bus.Publish([]Event{{Type: EventChatCreated, Data: message}})
	return message, nil
}

// CreateTask creates a task in status todo and publishes task.created.
// The assignee, when present, must be non-empty after trimming.
func (s *Store) CreateTask(title string, assignee *string) (TaskItem, error) {
	title, err := requireField("title", title)
	if err != nil {
		return TaskItem{}, err
	}
	if assignee != nil {
		trimmed, err := requireField("assignee", *assignee)
		if err != nil {
			return TaskItem{}, err
		}
		assignee = &trimmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	now := s.clock.NowMs()
	task := TaskItem{
		ID:          s.nextTaskID,
		Title:       title,
		Assignee:    assignee,
		Status:      TaskStatusTodo,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	s.tasks[task.ID] = task
	s.taskOrder = append(s.taskOrder, task.ID)

	s.bus.Publish([]Event{{Type: EventTaskCreated, Data: task}})
	return task, nil
}

// SetTaskStatus moves a task to the given status and publishes
// task.updated. Any status may transition to any other; each call bumps
// the task's updated timestamp.
func (s *Store) SetTaskStatus(id uint64, status TaskStatus) (TaskItem, error) {
	if !status.Valid() {
		return TaskItem{}, Invalidf("unknown task status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return TaskItem{}, NotFoundf("task %d not found", id)
	}
	task.Status = status
	task.UpdatedAtMs = s.clock.NowMs()
	s.tasks[id] = task

	s.bus.Publish([]Event{{Type: EventTaskUpdated, Data: task}})
	return task, nil
}

// CreateTimeline appends a timeline entry and publishes timeline.created.
func (s *Store) CreateTimeline(kind, text string) (TimelineEvent, error) {
	kind, err := requireField("kind", kind)
	if err != nil {
		return TimelineEvent{}, err
	}
	text, err = requireField("text", text)
	if err != nil {
		return TimelineEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.appendTimelineLocked(kind, text, s.clock.NowMs())
	s.bus.Publish([]Event{{Type: EventTimelineCreated, Data: entry}})
	return entry, nil
}

// SetPresence creates or replaces a user's presence record and publishes
// presence.updated. Users are matched case-insensitively; the stored
// record preserves the submitted casing.
func (s *Store) SetPresence(user string, status PresenceStatus) (Presence, error) {
	user, err := requireField("user", user)
	if err != nil {
		return Presence{}, err
	}
	if !status.Valid() {
		return Presence{}, Invalidf("unknown presence status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := Presence{
		User:        user,
		Status:      status,
		UpdatedAtMs: s.clock.NowMs(),
	}
	s.presence[strings.ToLower(user)] = record

	s.bus.Publish([]Event{{Type: EventPresenceUpdated, Data: record}})
	return record, nil
}

// IngestFrame records a newly observed frame file and the timeline entry
// that references it, publishing observer.frame followed by
// timeline.created (kind "observer") as one batch. The two share one
// timestamp taken under the lock. A path that has already been ingested is
// a noop: the existing frame is returned with created=false and nothing is
// published.
func (s *Store) IngestFrame(input FrameInput) (ObserverFrame, bool, error) {
	path, err := requireField("path", input.Path)
	if err != nil {
		return ObserverFrame{}, false, err
	}
	filename, err := requireField("filename", input.Filename)
	if err != nil {
		return ObserverFrame{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, known := s.frames[path]; known {
		return existing, false, nil
	}

	observedAt := s.clock.NowMs()
	frame := ObserverFrame{
		Path:         path,
		Filename:     filename,
		SizeBytes:    input.SizeBytes,
		ModifiedAtMs: input.ModifiedAtMs,
		ObservedAtMs: observedAt,
	}
	s.frames[path] = frame
	s.frameOrder = append(s.frameOrder, path)

	entry := s.appendTimelineLocked("observer", fmt.Sprintf("observer frame %s", filename), observedAt)

	s.bus.Publish([]Event{
		{Type: EventObserverFrame, Data: frame},
		{Type: EventTimelineCreated, Data: entry},
	})
	return frame, true, nil
}

// Snapshot returns an immutable copy of all collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Attach subscribes to the live event stream and captures the snapshot it
// starts from, atomically with respect to mutations: the snapshot reflects
// every publish before the attach point and the subscription carries every
// publish after it, with no gap and no overlap.
func (s *Store) Attach() (Snapshot, *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshotLocked()
	return snapshot, s.bus.Subscribe()
}

// SubscriberCount returns the number of live bus subscribers.
func (s *Store) SubscriberCount() int {
	return s.bus.SubscriberCount()
}

// ListChat returns all chat messages in creation order.
func (s *Store) ListChat() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage{}, s.chat...)
}

// ListTasks returns all tasks in creation order.
func (s *Store) ListTasks() []TaskItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTasksLocked()
}

// ListTimeline returns all timeline entries in creation order.
func (s *Store) ListTimeline() []TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TimelineEvent{}, s.timeline...)
}

// ListPresence returns all presence records, ordered by lowercased user.
func (s *Store) ListPresence() []Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPresenceLocked()
}

// ListFrames returns all observed frames, ordered by observation time
// ascending.
func (s *Store) ListFrames() []ObserverFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listFramesLocked()
}

func (s *Store) appendTimelineLocked(kind, text string, createdAtMs uint64) TimelineEvent {
	s.nextTimelineID++
	entry := TimelineEvent{
		ID:          s.nextTimelineID,
		Kind:        kind,
		Text:        text,
		CreatedAtMs: createdAtMs,
	}
	s.timeline = append(s.timeline, entry)
	return entry
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Chat:          append([]ChatMessage{}, s.chat...),
		Tasks:         s.listTasksLocked(),
		Timeline:      append([]TimelineEvent{}, s.timeline...),
		Presence:      s.listPresenceLocked(),
		Frames:        s.listFramesLocked(),
		GeneratedAtMs: s.clock.NowMs(),
	}
}

func (s *Store) listTasksLocked() []TaskItem {
	tasks := make([]TaskItem, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		tasks = append(tasks, s.tasks[id])
	}
	return tasks
}

func (s *Store) listPresenceLocked() []Presence {
	keys := make([]string, 0, len(s.presence))
	for key := range s.presence {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	records := make([]Presence, 0, len(keys))
	for _, key := range keys {
		records = append(records, s.presence[key])
	}
	return records
}

func (s *Store) listFramesLocked() []ObserverFrame {
	frames := make([]ObserverFrame, 0, len(s.frameOrder))
	for _, path := range s.frameOrder {
		frames = append(frames, s.frames[path])
	}
	return frames
}

// requireField trims a string input and rejects it when nothing remains.
func requireField(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", Invalidf("%s must not be empty", name)
	}
	return trimmed, nil
}
