package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ExitStatus is the outcome recorded when an execution finishes.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// ExitCode maps an ExitStatus to a process exit code.
func (s ExitStatus) ExitCode() int {
	switch s {
	case ExitStatusCompleted, ExitStatusNoOp:
		return 0
	default:
		return 1
	}
}

// PublicationStatus is the state of one output table within a run.
type PublicationStatus string

const (
	// PublicationStaged means the table is written under the run's staging prefix.
	PublicationStaged PublicationStatus = "STAGED"
	// PublicationPublished means the table is visible at its live location.
	PublicationPublished PublicationStatus = "PUBLISHED"
	// PublicationFailed means writing or publishing the table failed.
	PublicationFailed PublicationStatus = "FAILED"
)

// FailureList holds error messages. It is stored as a JSON array.
type FailureList []string

// Value implements driver.Valuer.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (fl *FailureList) Scan(value interface{}) error {
	b, err := scanBytes(value, "FailureList")
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*fl = make(FailureList, 0)
		return nil
	}
	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

// JobParameters are the run inputs recorded with a JobExecution. Stored as a JSON object.
type JobParameters map[string]string

// Value implements driver.Valuer.
func (jp JobParameters) Value() (driver.Value, error) {
	if jp == nil {
		return "{}", nil
	}
	data, err := json.Marshal(jp)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value interface{}) error {
	b, err := scanBytes(value, "JobParameters")
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*jp = JobParameters{}
		return nil
	}
	if err := json.Unmarshal(b, jp); err != nil {
		return fmt.Errorf("failed to unmarshal JobParameters JSON: %w", err)
	}
	return nil
}

// Keys returns the parameter names in sorted order.
func (jp JobParameters) Keys() []string {
	keys := make([]string, 0, len(jp))
	for k := range jp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scanBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported Scan type for %s: %T", typeName, value)
	}
}

// JobExecution is one run of the pipeline.
type JobExecution struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	Version        int
	CreateTime     time.Time
	LastUpdated    time.Time
	StepExecutions []*StepExecution

	mu sync.Mutex
}

// StepExecution is one step within a JobExecution.
type StepExecution struct {
	ID             string
	StepName       string
	JobExecution   *JobExecution
	JobExecutionID string
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	ReadCount      int
	WriteCount     int
	FilterCount    int
	LastUpdated    time.Time
	Version        int
}

// TablePublication records what a run did with one output table.
type TablePublication struct {
	ID             string
	JobExecutionID string
	TableName      string
	// Location is where the table currently lives (staging or live).
	Location    string
	RowCount    int
	Partitions  int
	Files       int
	Status      PublicationStatus
	LastUpdated time.Time
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewJobExecution creates a JobExecution in STARTING state.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	if params == nil {
		params = JobParameters{}
	}
	return &JobExecution{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		StartTime:      now,
		Status:         BatchStatusStarting,
		ExitStatus:     ExitStatusUnknown,
		Failures:       make(FailureList, 0),
		CreateTime:     now,
		LastUpdated:    now,
		StepExecutions: make([]*StepExecution, 0),
	}
}

func isValidTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo changes the status if the transition is allowed.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	return nil
}

// MarkAsStarted moves the execution to STARTED.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to STARTED: %v", je.ID, err)
		je.Status = BatchStatusStarted
	}
	now := time.Now()
	je.StartTime = now
	je.LastUpdated = now
}

// MarkAsCompleted moves the execution to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	if err := je.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to COMPLETED: %v", je.ID, err)
		je.Status = BatchStatusCompleted
	}
	je.ExitStatus = ExitStatusCompleted
	now := time.Now()
	je.EndTime = &now
	je.LastUpdated = now
}

// MarkAsFailed moves the execution to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	if terr := je.TransitionTo(BatchStatusFailed); terr != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to FAILED: %v", je.ID, terr)
		je.Status = BatchStatusFailed
	}
	je.ExitStatus = ExitStatusFailed
	now := time.Now()
	je.EndTime = &now
	je.LastUpdated = now
	je.AddFailureException(err)
}

// AddFailureException appends err's message unless it is already recorded.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	je.mu.Lock()
	defer je.mu.Unlock()
	je.Failures = appendUnique(je.Failures, exception.ExtractErrorMessage(err))
	je.LastUpdated = time.Now()
}

// AddStepExecution attaches se to the job. Safe for concurrent steps.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.mu.Lock()
	defer je.mu.Unlock()
	je.StepExecutions = append(je.StepExecutions, se)
}

// Duration returns the elapsed time of a finished execution, or the time so far.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime != nil {
		return je.EndTime.Sub(je.StartTime)
	}
	return time.Since(je.StartTime)
}

// NewStepExecution creates a StepExecution in STARTING state attached to jobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:             NewID(),
		StepName:       stepName,
		JobExecution:   jobExecution,
		JobExecutionID: jobExecution.ID,
		StartTime:      now,
		Status:         BatchStatusStarting,
		ExitStatus:     ExitStatusUnknown,
		Failures:       make(FailureList, 0),
		LastUpdated:    now,
	}
	jobExecution.AddStepExecution(se)
	return se
}

// TransitionTo changes the status if the transition is allowed.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

// MarkAsStarted moves the step to STARTED.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to STARTED: %v", se.ID, err)
		se.Status = BatchStatusStarted
	}
	now := time.Now()
	se.StartTime = now
	se.LastUpdated = now
}

// MarkAsCompleted moves the step to COMPLETED.
func (se *StepExecution) MarkAsCompleted() {
	if err := se.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to COMPLETED: %v", se.ID, err)
		se.Status = BatchStatusCompleted
	}
	se.ExitStatus = ExitStatusCompleted
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
}

// MarkAsFailed moves the step to FAILED and records err on the step and its job.
func (se *StepExecution) MarkAsFailed(err error) {
	if terr := se.TransitionTo(BatchStatusFailed); terr != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to FAILED: %v", se.ID, terr)
		se.Status = BatchStatusFailed
	}
	se.ExitStatus = ExitStatusFailed
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
	if err != nil {
		se.Failures = appendUnique(se.Failures, exception.ExtractErrorMessage(err))
		if se.JobExecution != nil {
			se.JobExecution.AddFailureException(err)
		}
	}
}

// Duration returns the elapsed time of the step.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime != nil {
		return se.EndTime.Sub(se.StartTime)
	}
	return time.Since(se.StartTime)
}

// NewTablePublication creates a publication record in STAGED state.
func NewTablePublication(jobExecutionID, tableName, location string) *TablePublication {
	return &TablePublication{
		ID:             NewID(),
		JobExecutionID: jobExecutionID,
		TableName:      tableName,
		Location:       location,
		Status:         PublicationStaged,
		LastUpdated:    time.Now(),
	}
}

func appendUnique(list FailureList, msg string) FailureList {
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}
