package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("prosemd.scheduler")

type Task struct {
	Name    string
	Execute func() error
}

type pending struct {
	timer *time.Timer
	task  Task
}

// Scheduler runs tasks on a small worker pool. Tasks scheduled under a key
// are debounced: only the last task submitted for a key within the delay
// window runs.
type Scheduler struct {
	taskQueue chan Task
	delay     time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	stopped bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler with the specified queue size and
// debounce delay.
func NewScheduler(queueSize int, delay time.Duration) *Scheduler {
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		delay:     delay,
		pending:   make(map[string]*pending),
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the worker loops.
func (s *Scheduler) RunScheduler(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go s.work()
	}
}

func (s *Scheduler) work() {
	for {
		select {
		case task := <-s.taskQueue:
			s.run(task)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) run(task Task) {
	defer s.wg.Done()
	log.Debugf("executing %s", task.Name)
	if err := task.Execute(); err != nil {
		log.Errorf("task %s failed: %v", task.Name, err)
	}
}

// Schedule runs task after the debounce delay unless another task is
// scheduled under the same key first. It reports false once the scheduler
// has been stopped.
func (s *Scheduler) Schedule(key string, task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{task: task}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(key, p) })
	s.pending[key] = p
	return true
}

func (s *Scheduler) fire(key string, p *pending) {
	s.mu.Lock()
	if s.pending[key] != p || s.stopped {
		// Superseded or cancelled while the timer was firing.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.wg.Add(1)
	s.mu.Unlock()

	s.taskQueue <- p.task
}

// ScheduleHighPriorityTask runs a task asap, bypassing the debounce.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.taskQueue <- task
	return true
}

// Cancel drops the task pending under key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending returns the number of debounced tasks waiting for their delay.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// StopScheduler drops pending debounced tasks, waits for queued tasks to
// complete and stops the workers.
func (s *Scheduler) StopScheduler() {
	log.Info("stopping scheduler")
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
	close(s.stopChan)
	log.Info("scheduler stopped")
}
