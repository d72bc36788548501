package task

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/Joseda-hg/lazyboard/internal/model"
	"github.com/Joseda-hg/lazyboard/internal/validate"
)

// tokenize lower-cases text and splits it into a set of ASCII alphanumeric words.
func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index of the word sets of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	setA, setB := tokenize(a), tokenize(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

// AddTaskChecked refuses to create a near-duplicate of an active task unless
// opts.Force is set. Similar tasks are reported either way.
func (e *Engine) AddTaskChecked(ctx context.Context, in model.AddTaskInput, opts model.CheckedAddOptions) (model.CheckedAddResult, error) {
	title, err := validate.Title(in.Title)
	if err != nil {
		return model.CheckedAddResult{}, e.fail("add", err, nil)
	}

	active := false
	existing, err := e.ListTasks(ctx, model.TaskFilter{Archived: &active})
	if err != nil {
		return model.CheckedAddResult{}, err
	}

	similar := []model.SimilarTask{}
	for _, t := range existing {
		score := Similarity(title, t.Title)
		if score >= e.similarity {
			similar = append(similar, model.SimilarTask{Task: t, Similarity: score})
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})

	if len(similar) > 0 && similar[0].Similarity >= e.rejectSimilarity && !opts.Force {
		closest := similar[0]
		reason := fmt.Sprintf("Similar task already exists: %q [%s] (%d%% match)",
			closest.Task.Title, shortID(closest.Task.ID), int(math.Round(closest.Similarity*100)))
		e.log.WithField("similar_to", closest.Task.ID).Debug("near-duplicate task rejected")
		return model.CheckedAddResult{Rejected: true, RejectionReason: reason, SimilarTasks: similar}, nil
	}

	created, err := e.AddTask(ctx, in)
	if err != nil {
		return model.CheckedAddResult{}, err
	}
	return model.CheckedAddResult{Task: &created, SimilarTasks: similar}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
