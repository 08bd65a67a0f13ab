package repository

// JobRepository persists run metadata: job executions, step executions and
// the publication status of every output table.
type JobRepository interface {
	JobExecution
	StepExecution
	TablePublication

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
