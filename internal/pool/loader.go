package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prefsurvey/internal/logging"

	"golang.org/x/sync/errgroup"
)

// DefaultQuestionColumn is the header of the question column.
const DefaultQuestionColumn = "Question"

// ModelColumn binds a model name to the column holding its responses.
type ModelColumn struct {
	Name   string
	Column string
}

// ResponseColumn returns the configured column, or "<Name> Response".
func (m ModelColumn) ResponseColumn() string {
	if m.Column != "" {
		return m.Column
	}
	return m.Name + " Response"
}

// GroupSource describes one tabular source and the group tag its items carry.
type GroupSource struct {
	Group          string
	Location       string
	Format         Format
	QuestionColumn string
	Models         [2]ModelColumn
}

func (g GroupSource) questionColumn() string {
	if g.QuestionColumn != "" {
		return g.QuestionColumn
	}
	return DefaultQuestionColumn
}

// Loader turns group sources into Items.
type Loader struct {
	fetcher Fetcher
	rnd     *Randomizer
}

// NewLoader returns a Loader. rnd decides slot assignment for every item.
func NewLoader(fetcher Fetcher, rnd *Randomizer) *Loader {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	return &Loader{fetcher: fetcher, rnd: rnd}
}

// Load fetches every source concurrently, then builds items group by group in
// the order given. Any failure fails the whole load with a *LoadError.
func (l *Loader) Load(ctx context.Context, sources []GroupSource) ([][]Item, error) {
	log := logging.Get(logging.CategoryPool)

	if len(sources) == 0 {
		return nil, &LoadError{Source: "config", Err: errors.New("no sources configured")}
	}
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if src.Group == "" {
			return nil, &LoadError{Source: src.Location, Err: errors.New("group name is required")}
		}
		if seen[src.Group] {
			return nil, &LoadError{Group: src.Group, Source: src.Location, Err: errors.New("duplicate group name")}
		}
		seen[src.Group] = true
	}

	tables := make([]*Table, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			data, ct, err := l.fetcher.Fetch(gctx, src.Location)
			if err != nil {
				return &LoadError{Group: src.Group, Source: src.Location, Err: err}
			}
			t, err := DecodeTable(DetectFormat(src.Format, src.Location, ct, data), data)
			if err != nil {
				return &LoadError{Group: src.Group, Source: src.Location, Err: err}
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("pool load failed: %v", err)
		return nil, err
	}

	groups := make([][]Item, len(sources))
	for i, src := range sources {
		items, err := l.buildItems(src, tables[i])
		if err != nil {
			log.Error("pool load failed: %v", err)
			return nil, err
		}
		log.Info("loaded group %q: %d items from %s", src.Group, len(items), src.Location)
		groups[i] = items
	}
	return groups, nil
}

func (l *Loader) buildItems(src GroupSource, t *Table) ([]Item, error) {
	fail := func(format string, args ...any) error {
		return &LoadError{Group: src.Group, Source: src.Location, Err: fmt.Errorf(format, args...)}
	}

	qCol, ok := t.Column(src.questionColumn())
	if !ok {
		return nil, fail("missing column %q", src.questionColumn())
	}
	var cols [2]int
	for i, m := range src.Models {
		if m.Name == "" {
			return nil, fail("model %d has no name", i+1)
		}
		c, ok := t.Column(m.ResponseColumn())
		if !ok {
			return nil, fail("missing column %q", m.ResponseColumn())
		}
		cols[i] = c
	}

	items := make([]Item, 0, len(t.Rows))
	for idx, row := range t.Rows {
		question := Cell(row, qCol)
		if strings.TrimSpace(question) == "" {
			return nil, fail("row %d: empty %q", idx+1, src.questionColumn())
		}
		var cands [2]Candidate
		for i, m := range src.Models {
			text := Cell(row, cols[i])
			if strings.TrimSpace(text) == "" {
				return nil, fail("row %d: empty %q", idx+1, m.ResponseColumn())
			}
			cands[i] = Candidate{Model: m.Name, Text: text}
		}
		items = append(items, Item{
			ID:       ItemID(src.Group, idx),
			Question: question,
			Slots:    l.rnd.Assign(cands[0], cands[1]),
			Group:    src.Group,
		})
	}
	return items, nil
}

// Build loads sources, samples them with sizes, and returns the final pool.
// An empty result is reported as ErrEmptyPool.
func Build(ctx context.Context, loader *Loader, sampler *Sampler, sources []GroupSource, sizes map[string]int) ([]Item, error) {
	groups, err := loader.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	items := sampler.Sample(groups, sizes)
	if len(items) == 0 {
		return nil, ErrEmptyPool
	}
	return items, nil
}
