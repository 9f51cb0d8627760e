package search

import (
	"sort"
	"strconv"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// UniqueAdditions returns the incoming articles not already present in
// existing, judged by link. Articles with a sentinel or empty link are
// never deduplicated: two unrelated records without a DOI must both
// survive the merge.
func UniqueAdditions(existing, incoming []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(existing))
	for _, article := range existing {
		if article.HasLink() {
			seen[article.Link] = struct{}{}
		}
	}

	additions := make([]domain.Article, 0, len(incoming))
	for _, article := range incoming {
		if article.HasLink() {
			if _, dup := seen[article.Link]; dup {
				continue
			}
			seen[article.Link] = struct{}{}
		}
		additions = append(additions, article)
	}
	return additions
}

// Merge appends the unique incoming articles to existing.
func Merge(existing, incoming []domain.Article) []domain.Article {
	merged := make([]domain.Article, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	return append(merged, UniqueAdditions(existing, incoming)...)
}

// SortArticles orders articles by quality level descending, then year
// descending, in place. The sort is stable so equal keys keep their
// relative order.
//
// A nil level sorts with the same key as level 1: ahead of level 0 but
// behind levels 2 and 3. Changing this would silently reorder stored
// result sets, so it stays.
func SortArticles(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		ki, kj := sortKey(articles[i]), sortKey(articles[j])
		if ki.level != kj.level {
			return ki.level < kj.level
		}
		return ki.year < kj.year
	})
}

type articleKey struct {
	level int
	year  int
}

func sortKey(a domain.Article) articleKey {
	levelKey := -1
	if a.Level != nil {
		levelKey = -*a.Level
	}
	year := 0
	if y, err := strconv.Atoi(a.Year); err == nil {
		year = y
	}
	return articleKey{level: levelKey, year: -year}
}

// CountHighQuality counts articles whose level is in the high-quality set.
func CountHighQuality(articles []domain.Article) int {
	count := 0
	for _, article := range articles {
		if article.IsHighQuality() {
			count++
		}
	}
	return count
}
