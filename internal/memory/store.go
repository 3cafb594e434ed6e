package memory

import (
	"context"
	"log"
	"sort"
	"strings"
)

// Store is the long-term task archive: a thin similar-task lookup and
// pattern-extraction layer over a pluggable Backend.
type Store struct {
	backend Backend
}

// New creates a Store writing through backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Archive persists r through the backend.
func (s *Store) Archive(ctx context.Context, r Record) error {
	return s.backend.Put(ctx, r)
}

// ArchiveBestEffort archives r, logging but swallowing backend failures —
// memory is best-effort and must never block or fail a run.
func (s *Store) ArchiveBestEffort(ctx context.Context, r Record) {
	if err := s.Archive(ctx, r); err != nil {
		log.Printf("[Memory] archive failed, discarding record for task %s: %v", r.TaskID, err)
	}
}

// SimilarTasks returns archived Records whose Goal is most similar to goal,
// ranked by bigram Jaccard similarity, most similar first. limit <= 0 means
// unbounded. Records with zero similarity are excluded.
func (s *Store) SimilarTasks(ctx context.Context, goal string, limit int) ([]Record, error) {
	all, err := s.backend.List(ctx)
	if err != nil {
		log.Printf("[Memory] similar-task lookup failed, returning no matches: %v", err)
		return nil, nil
	}

	target := bigrams(strings.ToLower(goal))
	type scored struct {
		record Record
		score  float64
	}
	var matches []scored
	for _, r := range all {
		score := jaccardSimilarity(target, bigrams(strings.ToLower(r.Goal)))
		if score > 0 {
			matches = append(matches, scored{r, score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Record, len(matches))
	for i, m := range matches {
		out[i] = m.record
	}
	return out, nil
}

// SuccessfulToolSequences returns the ToolSequence of every successful
// Record among goal's most similar past tasks, most similar first. This is
// the Memory Store's pattern-extraction responsibility: it reports which
// tool sequences have worked for comparable goals. The engine's planning
// step does not call it.
func (s *Store) SuccessfulToolSequences(ctx context.Context, goal string, limit int) ([][]string, error) {
	similar, err := s.SimilarTasks(ctx, goal, 0)
	if err != nil {
		return nil, err
	}
	var sequences [][]string
	for _, r := range similar {
		if !r.Success || len(r.ToolSequence) == 0 {
			continue
		}
		sequences = append(sequences, r.ToolSequence)
		if limit > 0 && len(sequences) >= limit {
			break
		}
	}
	return sequences, nil
}

// Close releases the underlying backend's resources.
func (s *Store) Close() error {
	return s.backend.Close()
}

// bigrams splits s into a character-bigram set, rune-based so it works for
// non-ASCII goal text.
func bigrams(s string) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}

// jaccardSimilarity computes |A∩B| / |A∪B|. Two empty sets are treated as
// fully dissimilar here (unlike a general-purpose similarity routine) since
// an empty goal string carries no information to match against.
func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
