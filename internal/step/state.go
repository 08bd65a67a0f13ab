package step

import (
	"sort"
	"sync"

	"github.com/tigerroll/songplays/internal/domain/entity"
	"github.com/tigerroll/songplays/pkg/batch/component/step/writer"
)

// RunState carries what one step of a run hands to a later one: the filtered
// plays for the fact step and the write results for the summary.
type RunState struct {
	Layout *Layout

	mu       sync.Mutex
	plays    []entity.EventRecord
	hasPlays bool
	results  map[string]writer.WriteResult
}

// NewRunState creates the state of a run.
func NewRunState(layout *Layout) *RunState {
	return &RunState{Layout: layout, results: make(map[string]writer.WriteResult)}
}

// SetPlays stores the NextSong events of the run.
func (s *RunState) SetPlays(plays []entity.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = plays
	s.hasPlays = true
}

// Plays returns the stored plays and whether the event step has produced them.
func (s *RunState) Plays() ([]entity.EventRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays, s.hasPlays
}

func (s *RunState) recordResult(table string, result writer.WriteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[table] = result
}

// Result returns the write result of a table.
func (s *RunState) Result(table string) (writer.WriteResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[table]
	return r, ok
}

// WrittenTables returns the names of the tables written so far, in publish order.
func (s *RunState) WrittenTables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.results))
	for name := range s.results {
		names = append(names, name)
	}
	order := make(map[string]int, len(TableNames))
	for i, n := range TableNames {
		order[n] = i
	}
	sort.Slice(names, func(i, j int) bool { return order[names[i]] < order[names[j]] })
	return names
}
