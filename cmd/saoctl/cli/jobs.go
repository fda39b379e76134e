package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/sao-erp/sao-erp/jobs"
)

// TaskEnqueuer submits known periodic tasks; satisfied by *jobs.Client.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, name, requestedBy string) (*asynq.TaskInfo, error)
}

// QueueReader reads queue state; satisfied by *asynq.Inspector.
type QueueReader interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    TaskEnqueuer
	inspector QueueReader
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers against the queue's Redis.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// NewJobsCLIWith builds the helpers around caller supplied queue access.
func NewJobsCLIWith(client TaskEnqueuer, inspector QueueReader) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// TriggerOptions configures a manual job run.
type TriggerOptions struct {
	Name        string
	RequestedBy string
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// TriggerSummary is the structured outcome of a trigger.
type TriggerSummary struct {
	Task  string `json:"task"`
	ID    string `json:"id"`
	Queue string `json:"queue"`
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name, requestedBy string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	if !slices.Contains(jobs.TaskNames(), name) {
		return nil, fmt.Errorf("jobs cli: unsupported job %q (known: %s)", name, strings.Join(jobs.TaskNames(), ", "))
	}
	if requestedBy == "" {
		requestedBy = "saoctl"
	}
	return c.client.Enqueue(ctx, name, requestedBy)
}

// TriggerCommand runs Trigger and renders the result, returning the exit code.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts TriggerOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	info, err := c.Trigger(ctx, opts.Name, opts.RequestedBy)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "trigger %s: %v\n", opts.Name, err)
		return 1
	}
	summary := TriggerSummary{Task: opts.Name}
	if info != nil {
		summary.ID, summary.Queue = info.ID, info.Queue
	}
	if opts.JSONOutput {
		return encodeJSON(stdout, stderr, summary)
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s as %s on queue %s\n", summary.Task, summary.ID, summary.Queue)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// StatusCommand prints queue statistics, returning the exit code.
func (c *JobsCLI) StatusCommand(ctx context.Context, jsonOutput bool, stdout, stderr io.Writer) int {
	stdout, stderr = writers(stdout, stderr)
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "inspect queue: %v\n", err)
		return 1
	}
	if jsonOutput {
		return encodeJSON(stdout, stderr, stats)
	}
	_, _ = fmt.Fprintf(stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return 0
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

func writers(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func encodeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(stderr, "encode output: %v\n", err)
		return 1
	}
	return 0
}
