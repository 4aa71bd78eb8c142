// Package query translates listing criteria into filtered, ordered and
// paginated question sequences.
//
// Stores that can push criteria down (sqlite, postgres) read the normalized
// Criteria directly; the in-memory store uses Apply.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alphabot-ai/contextoverflow/internal/model"
)

const (
	DefaultLimit       = 10
	DefaultSearchLimit = 20
	MaxLimit           = 100
)

type Sort string

const (
	SortNew   Sort = "new"
	SortVotes Sort = "votes"
)

func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNew:
		return SortNew, nil
	case SortVotes:
		return SortVotes, nil
	}
	return "", fmt.Errorf("sort must be %q or %q", SortNew, SortVotes)
}

// Criteria selects questions. Every supplied filter must hold.
type Criteria struct {
	Limit      int
	Offset     int
	Language   string
	Tags       []string
	MinVotes   *int
	HasAnswers *bool
	Text       string
	Sort       Sort
}

// Normalize clamps the window into [1, maxLimit] and canonicalizes the
// filters. A non-positive maxLimit means MaxLimit.
func (c Criteria) Normalize(maxLimit int) Criteria {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	c.Limit = clamp(c.Limit, 1, maxLimit)
	if c.Offset < 0 {
		c.Offset = 0
	}
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	c.Tags = NormalizeTags(c.Tags)
	c.Text = strings.TrimSpace(c.Text)
	if c.Sort != SortVotes {
		c.Sort = SortNew
	}
	return c
}

// Matches reports whether q satisfies every filter in c.
func (c Criteria) Matches(q model.Question) bool {
	if c.Language != "" && q.Language != c.Language {
		return false
	}
	if len(c.Tags) > 0 && !intersects(q.Tags, c.Tags) {
		return false
	}
	if c.MinVotes != nil && q.Votes < *c.MinVotes {
		return false
	}
	if c.HasAnswers != nil && (q.AnswerCount > 0) != *c.HasAnswers {
		return false
	}
	if c.Text != "" {
		needle := strings.ToLower(c.Text)
		if !strings.Contains(strings.ToLower(q.Title), needle) && !strings.Contains(strings.ToLower(q.Body), needle) {
			return false
		}
	}
	return true
}

// Apply filters, orders and pages all. It returns the page and the number of
// questions matching before paging.
func Apply(all []model.Question, c Criteria) ([]model.Question, int) {
	matched := make([]model.Question, 0, len(all))
	for _, q := range all {
		if c.Matches(q) {
			matched = append(matched, q)
		}
	}
	SortQuestions(matched, c.Sort)
	return Window(matched, c.Limit, c.Offset), len(matched)
}

// SortQuestions orders newest first, or by votes with newest first among ties.
// Ids break the remaining ties since they are assigned in creation order.
func SortQuestions(qs []model.Question, by Sort) {
	sort.SliceStable(qs, func(i, j int) bool {
		a, b := qs[i], qs[j]
		if by == SortVotes && a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// SortAnswers orders by votes, then oldest first.
func SortAnswers(as []model.Answer) {
	sort.SliceStable(as, func(i, j int) bool {
		a, b := as[i], as[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Window returns items[offset:offset+limit], empty when offset is past the end.
func Window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) || limit <= 0 {
		end = len(items)
	}
	return items[offset:end]
}

// ParseTags splits a comma-separated tag list.
func ParseTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(csv, ","))
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
