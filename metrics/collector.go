// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single pipeline run. It is
// a leaf package with no internal dependencies. All increment methods
// are nil-receiver safe so callers never need to guard against a missing
// collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Task lifecycle
	TasksStarted   int64
	TasksSucceeded int64
	TasksSkipped   int64
	TasksFailed    int64

	// Tool invocations
	ToolInvocations int64
	ToolFailures    int64

	// Artifact store
	RecordsWritten    int64
	ArtifactsWritten  int64
	StoreWriteFailure int64

	// Dimensions (informational, set at construction)
	RunID string
	Plan  string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	tasksStarted   int64
	tasksSucceeded int64
	tasksSkipped   int64
	tasksFailed    int64

	toolInvocations int64
	toolFailures    int64

	recordsWritten    int64
	artifactsWritten  int64
	storeWriteFailure int64

	runID string
	plan  string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(runID, plan string) *Collector {
	return &Collector{runID: runID, plan: plan}
}

// IncTaskStarted records a task execution start.
func (c *Collector) IncTaskStarted() { c.inc(&c.tasksStarted) }

// IncTaskSucceeded records a task that completed successfully.
func (c *Collector) IncTaskSucceeded() { c.inc(&c.tasksSucceeded) }

// IncTaskSkipped records a task skipped because its outputs exist.
func (c *Collector) IncTaskSkipped() { c.inc(&c.tasksSkipped) }

// IncTaskFailed records a task failure.
func (c *Collector) IncTaskFailed() { c.inc(&c.tasksFailed) }

// IncToolInvocation records one Tool.Invoke call.
func (c *Collector) IncToolInvocation() { c.inc(&c.toolInvocations) }

// IncToolFailure records one failed Tool.Invoke call.
func (c *Collector) IncToolFailure() { c.inc(&c.toolFailures) }

// AddRecordsWritten records n annotation records persisted to the store.
func (c *Collector) AddRecordsWritten(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsWritten += n
	c.mu.Unlock()
}

// IncArtifactWritten records one artifact (data + manifest) persisted.
func (c *Collector) IncArtifactWritten() { c.inc(&c.artifactsWritten) }

// IncStoreWriteFailure records one failed artifact write.
func (c *Collector) IncStoreWriteFailure() { c.inc(&c.storeWriteFailure) }

func (c *Collector) inc(field *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Snapshot returns an immutable view of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TasksStarted:      c.tasksStarted,
		TasksSucceeded:    c.tasksSucceeded,
		TasksSkipped:      c.tasksSkipped,
		TasksFailed:       c.tasksFailed,
		ToolInvocations:   c.toolInvocations,
		ToolFailures:      c.toolFailures,
		RecordsWritten:    c.recordsWritten,
		ArtifactsWritten:  c.artifactsWritten,
		StoreWriteFailure: c.storeWriteFailure,
		RunID:             c.runID,
		Plan:              c.plan,
	}
}
