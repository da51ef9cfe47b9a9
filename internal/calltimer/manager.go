// Package calltimer schedules one cancellable timeout per call pair.
//
// A fired timer does not act on its own: the callback receives the Task and
// must Claim it inside the caller's critical section. Cancel and Claim both
// remove the task under the manager lock, so for any task exactly one of them
// succeeds.
package calltimer

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

var ErrAlreadyScheduled = errors.New("call timer already scheduled")

// PairKey identifies a call regardless of which side placed it.
type PairKey struct {
	first  domain.Identity
	second domain.Identity
}

func NewPairKey(a, b domain.Identity) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{first: a, second: b}
}

func (k PairKey) Parties() (domain.Identity, domain.Identity) {
	return k.first, k.second
}

func (k PairKey) String() string {
	return string(k.first) + "-" + string(k.second)
}

// Task is the handle of one scheduled timeout.
type Task struct {
	key      PairKey
	deadline time.Time
	timer    *clock.Timer
}

func (t *Task) Key() PairKey {
	return t.key
}

func (t *Task) Deadline() time.Time {
	return t.deadline
}

type Manager struct {
	clock clock.Clock

	mu    sync.Mutex
	tasks map[PairKey]*Task
}

func NewManager(clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		clock: clk,
		tasks: make(map[PairKey]*Task),
	}
}

// Start schedules onFire to run once after delay. onFire runs on its own
// goroutine and should Claim the task before acting.
func (m *Manager) Start(key PairKey, delay time.Duration, onFire func(*Task)) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[key]; ok {
		return nil, ErrAlreadyScheduled
	}

	task := &Task{
		key:      key,
		deadline: m.clock.Now().Add(delay),
	}
	task.timer = m.clock.AfterFunc(delay, func() {
		onFire(task)
	})
	m.tasks[key] = task

	return task, nil
}

// Cancel stops the timer stored under key. It reports false when there was
// nothing to cancel, including when the task already fired and was claimed.
func (m *Manager) Cancel(key PairKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[key]
	if !ok {
		return false
	}
	delete(m.tasks, key)
	task.timer.Stop()
	return true
}

// Claim removes task if it is still the one scheduled under its key.
func (m *Manager) Claim(task *Task) bool {
	if task == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tasks[task.key] != task {
		return false
	}
	delete(m.tasks, task.key)
	return true
}

func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancelled := len(m.tasks)
	for key, task := range m.tasks {
		task.timer.Stop()
		delete(m.tasks, key)
	}
	return cancelled
}

func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manager) Scheduled(key PairKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[key]
	return ok
}
