package store

import (
	"sort"
	"time"
)

// Store is the authoritative in-memory map of Jobs and Rules. It has no
// internal locking: it is owned exclusively by the Database Engine's single
// goroutine (§5 "no shared mutable state crosses component boundaries").
// Every other component only ever sees copies transported over channels.
type Store struct {
	jobs  map[string]Job
	rules map[string]Rule
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		jobs:  make(map[string]Job),
		rules: make(map[string]Rule),
	}
}

// SetJob upserts a job per invariant 2/3:
//   - unknown identifier: created as Planned.
//   - Planned/Executed/Failed: execution overwritten, status reset to Planned.
//   - Triggered: rejected with ErrConflictTriggered, no state change.
func (s *Store) SetJob(id string, execution time.Time, now time.Time) (Job, error) {
	execution = execution.Truncate(time.Second)
	now = now.Truncate(time.Second)

	existing, ok := s.jobs[id]
	if ok && existing.Status == JobTriggered {
		return Job{}, ErrConflictTriggered
	}

	job := Job{
		ID:             id,
		Execution:      execution,
		Status:         JobPlanned,
		LastTransition: now,
	}
	s.jobs[id] = job

	return job, nil
}

// PutJob installs a job exactly as given, bypassing the conflict check.
// Used by journal replay and by the engine's own internal transitions
// (triggering, execution outcomes), which have already decided the status.
func (s *Store) PutJob(job Job) {
	s.jobs[job.ID] = job
}

// UnsetJob removes a job, returning ErrNotFound if it does not exist.
func (s *Store) UnsetJob(id string) error {
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)

	return nil
}

// GetJob returns a copy of the job and whether it exists.
func (s *Store) GetJob(id string) (Job, bool) {
	job, ok := s.jobs[id]

	return job, ok
}

// SetRule upserts a rule unconditionally.
func (s *Store) SetRule(rule Rule) {
	s.rules[rule.ID] = rule.Clone()
}

// UnsetRule removes a rule, returning ErrNotFound if it does not exist.
func (s *Store) UnsetRule(id string) error {
	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)

	return nil
}

// GetRule returns a copy of the rule and whether it exists.
func (s *Store) GetRule(id string) (Rule, bool) {
	rule, ok := s.rules[id]

	return rule, ok
}

// RulesSnapshot returns a defensive copy of every rule, used by the
// Processor to compute pairings against a consistent-enough view (§4.2:
// "staleness up to a few ticks is acceptable").
func (s *Store) RulesSnapshot() []Rule {
	snapshot := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		snapshot = append(snapshot, rule.Clone())
	}

	return snapshot
}

// DueJobs returns every Planned job whose execution time has passed as of
// now, ordered ascending by (execution, identifier) per §4.1 "Triggering
// ordering".
func (s *Store) DueJobs(now time.Time) []Job {
	due := make([]Job, 0)
	for _, job := range s.jobs {
		if job.IsDue(now) {
			due = append(due, job.Clone())
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].Execution.Equal(due[j].Execution) {
			return due[i].Execution.Before(due[j].Execution)
		}

		return due[i].ID < due[j].ID
	})

	return due
}

// JobCount and RuleCount support observability gauges.
func (s *Store) JobCount() int  { return len(s.jobs) }
func (s *Store) RuleCount() int { return len(s.rules) }

// TriggeredJobs returns every job currently in the Triggered state, used on
// startup recovery to re-enqueue at-least-once (§4.4).
func (s *Store) TriggeredJobs() []Job {
	triggered := make([]Job, 0)
	for _, job := range s.jobs {
		if job.Status == JobTriggered {
			triggered = append(triggered, job.Clone())
		}
	}

	sort.Slice(triggered, func(i, j int) bool {
		if !triggered[i].Execution.Equal(triggered[j].Execution) {
			return triggered[i].Execution.Before(triggered[j].Execution)
		}

		return triggered[i].ID < triggered[j].ID
	})

	return triggered
}
