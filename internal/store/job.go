// Package store holds the in-memory Job and Rule maps owned by the Database
// Engine. Nothing outside internal/engine ever writes to a Store directly;
// other components receive immutable snapshots over channels.
package store

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPlanned   JobStatus = "planned"
	JobTriggered JobStatus = "triggered"
	JobExecuted  JobStatus = "executed"
	JobFailed    JobStatus = "failed"
)

// Job is a unit of future work identified by a string, with a UTC execution
// time and a lifecycle status.
type Job struct {
	ID             string
	Execution      time.Time
	Status         JobStatus
	LastTransition time.Time
}

// Clone returns a value copy of the Job, safe to hand across a channel.
func (j Job) Clone() Job {
	return j
}

// IsDue reports whether the job is Planned and its execution time has
// passed as of now.
func (j Job) IsDue(now time.Time) bool {
	return j.Status == JobPlanned && !j.Execution.After(now)
}
