package trivia

import (
	"strconv"
	"strings"

	"github.com/hxnx/triviatune/internal/catalog"
)

// Query is a compiled candidate query with positional bind parameters.
type Query struct {
	SQL  string
	Args []any
}

// candidateSlack over-fetches so backend-side validation (missing files,
// dead links) still leaves enough rows for one question.
const candidateSlack = 4

type queryBuilder struct {
	predicates []string
	args       []any
}

func (b *queryBuilder) bind(value any) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *queryBuilder) bindList(values []any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.bind(v)
	}
	return strings.Join(placeholders, ", ")
}

func (b *queryBuilder) where(predicate string) {
	b.predicates = append(b.predicates, predicate)
}

// Compile turns the filter state plus origin constraints into one
// parameterized query. Inclusion lists win over exclusion lists per category;
// session allow-lists are ANDed independently on top.
func Compile(origin catalog.Origin, filters *FilterSet, session *SessionFilters, minDuration, optionCount int, excludeIDs []int64) Query {
	b := &queryBuilder{}

	b.where("t.duration >= " + b.bind(minDuration))

	if origin.IsLocal() {
		b.where("t.origin = " + b.bind(string(catalog.OriginLocal)))
		b.where("t.file_path <> ''")
	} else {
		b.where("t.origin = " + b.bind(string(origin)))
		b.where("EXISTS (SELECT 1 FROM track_links l WHERE l.track_id = t.id)")
	}

	for _, category := range AllCategories() {
		compileCategory(b, category, filters, session)
	}

	if filters != nil {
		if !filters.Lyrics.IsZero() {
			compileLyrics(b, filters.Lyrics)
		}
		if filters.FavoritesOnly {
			b.where("t.favorite")
		}
	}

	if len(excludeIDs) > 0 {
		values := make([]any, len(excludeIDs))
		for i, id := range excludeIDs {
			values[i] = id
		}
		b.where("t.id NOT IN (" + b.bindList(values) + ")")
	}

	limit := b.bind(candidateSlack * optionCount)

	sql := "SELECT " + catalog.TrackColumns() + "\nFROM tracks t\nWHERE " +
		strings.Join(b.predicates, "\n  AND ") +
		"\nORDER BY random()\nLIMIT " + limit

	return Query{SQL: sql, Args: b.args}
}

func compileCategory(b *queryBuilder, category Category, filters *FilterSet, session *SessionFilters) {
	meta := categories[category]

	if allowed := session.Values(category); len(allowed) > 0 {
		switch meta.match {
		case matchPrefix:
			clauses := make([]string, 0, len(allowed))
			for _, prefix := range allowed {
				clauses = append(clauses, meta.expr+" LIKE "+b.bind(prefix+"%"))
			}
			b.where("(" + strings.Join(clauses, " OR ") + ")")
		default:
			if values := toAnyList(meta, allowed); len(values) > 0 {
				b.where(meta.expr + " IN (" + b.bindList(values) + ")")
			}
		}
	}

	if filters == nil {
		return
	}

	included := filters.IncludedValues(category)
	if meta.includable && len(included) > 0 {
		// Inclusion wins; the exclusion list for this category is ignored.
		if values := toAnyList(meta, included); len(values) > 0 {
			b.where(meta.expr + " IN (" + b.bindList(values) + ")")
		}
		return
	}

	excluded := filters.ExcludedValues(category)
	if len(excluded) == 0 {
		return
	}

	switch meta.match {
	case matchPrefix:
		// Folders denote path prefixes, so exclusion is a negative prefix
		// match per value.
		for _, prefix := range excluded {
			b.where(meta.expr + " NOT LIKE " + b.bind(prefix+"%"))
		}
	default:
		if values := toAnyList(meta, excluded); len(values) > 0 {
			b.where(meta.expr + " NOT IN (" + b.bindList(values) + ")")
		}
	}
}

func compileLyrics(b *queryBuilder, lyrics LyricsFilter) {
	operator := "ILIKE"
	if lyrics.CaseSensitive {
		operator = "LIKE"
	}

	pattern := "%" + lyrics.Text + "%"
	if lyrics.WholeWord {
		// Space-padded approximation; see LyricsFilter.
		pattern = "% " + lyrics.Text + " %"
	}

	b.where("t.lyrics " + operator + " " + b.bind(pattern))
}

func toAnyList(meta categoryMeta, values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if meta.match == matchNumeric {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				out = append(out, n)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
