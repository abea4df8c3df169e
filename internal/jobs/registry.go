package jobs

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrExists reports an attempt to create a job whose id is taken.
	ErrExists = errors.New("job already exists")
	// ErrTerminal reports an attempt to mutate a job in the error state.
	ErrTerminal = errors.New("job is in a terminal error state")
)

type entry struct {
	mu      sync.Mutex
	job     Job
	deleted bool
}

// Registry is a concurrent id -> Job store with per-entry locking.
type Registry struct {
	entries sync.Map
	count   atomic.Int64
	now     func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Create stores job under job.ID. CreatedAt and UpdatedAt default to now.
func (r *Registry) Create(job Job) error {
	if job.ID == "" {
		return errors.New("job id required")
	}
	now := r.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	e := &entry{job: job}
	if _, loaded := r.entries.LoadOrStore(job.ID, e); loaded {
		return ErrExists
	}
	r.count.Add(1)
	return nil
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Job, bool) {
	e, ok := r.load(id)
	if !ok {
		return Job{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return Job{}, false
	}
	return e.job, true
}

// Mutate applies fn to the stored job under its lock and returns the updated
// copy. Jobs already in the error state are left untouched and ErrTerminal is
// returned.
func (r *Registry) Mutate(id string, fn func(*Job)) (Job, error) {
	e, ok := r.load(id)
	if !ok {
		return Job{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return Job{}, ErrNotFound
	}
	if e.job.Status == StatusError {
		return e.job, ErrTerminal
	}
	next := e.job
	fn(&next)
	next.ID = e.job.ID
	next.CreatedAt = e.job.CreatedAt
	if e.job.Error != "" {
		next.Error = e.job.Error
	}
	next.UpdatedAt = r.now()
	e.job = next
	return next, nil
}

// Delete removes the job and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	value, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return false
	}
	e := value.(*entry)
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	r.count.Add(-1)
	return true
}

// List returns copies of every job ordered by creation time.
func (r *Registry) List() []Job {
	var result []Job
	r.entries.Range(func(_, value any) bool {
		e := value.(*entry)
		e.mu.Lock()
		if !e.deleted {
			result = append(result, e.job)
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Len returns the number of stored jobs.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// StatusCounts tallies jobs per status.
func (r *Registry) StatusCounts() map[Status]int {
	counts := make(map[Status]int)
	for _, job := range r.List() {
		counts[job.Status]++
	}
	return counts
}

func (r *Registry) load(id string) (*entry, bool) {
	value, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*entry), true
}
