package inmemory

import (
	"context"
	"sort"

	"github.com/tigerroll/songplays/pkg/batch/core/domain/model"
)

// SaveTablePublication inserts or replaces the record for the run and table.
func (r *InMemoryJobRepository) SaveTablePublication(ctx context.Context, publication *model.TablePublication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTable, ok := r.publications[publication.JobExecutionID]
	if !ok {
		byTable = make(map[string]*model.TablePublication)
		r.publications[publication.JobExecutionID] = byTable
	}
	cloned := *publication
	byTable[publication.TableName] = &cloned
	return nil
}

// FindTablePublications returns copies of a run's records ordered by table name.
func (r *InMemoryJobRepository) FindTablePublications(ctx context.Context, jobExecutionID string) ([]*model.TablePublication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byTable := r.publications[jobExecutionID]
	result := make([]*model.TablePublication, 0, len(byTable))
	for _, p := range byTable {
		cloned := *p
		result = append(result, &cloned)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TableName < result[j].TableName })
	return result, nil
}
