package trivia

import "sort"

// Category names one togglable filter dimension. The compiler branches on the
// category table below instead of bespoke per-category code.
type Category string

const (
	CategoryArtist   Category = "artist"
	CategoryAlbum    Category = "album"
	CategoryGenre    Category = "genre"
	CategoryFolder   Category = "folder"
	CategoryDecade   Category = "decade"
	CategoryYear     Category = "year"
	CategoryLabel    Category = "label"
	CategoryCountry  Category = "country"
	CategoryProducer Category = "producer"
	CategoryEngineer Category = "engineer"
)

type matchKind int

const (
	matchEquality matchKind = iota
	matchPrefix
	matchNumeric
)

type categoryMeta struct {
	// expr is the SQL expression the predicate applies to.
	expr string
	// match selects equality IN/NOT IN, path-prefix LIKE, or numeric IN.
	match matchKind
	// includable categories support an inclusion list that overrides the
	// exclusion list.
	includable bool
	// session categories can appear in SessionFilters allow-lists.
	session bool
}

var categories = map[Category]categoryMeta{
	CategoryArtist:   {expr: "t.artist", match: matchEquality, session: true},
	CategoryAlbum:    {expr: "t.album", match: matchEquality, session: true},
	CategoryGenre:    {expr: "t.genre", match: matchEquality, session: true},
	CategoryFolder:   {expr: "t.file_path", match: matchPrefix, session: true},
	CategoryDecade:   {expr: "(t.year / 10) * 10", match: matchNumeric, includable: true},
	CategoryYear:     {expr: "t.year", match: matchNumeric, includable: true},
	CategoryLabel:    {expr: "t.label", match: matchEquality, includable: true},
	CategoryCountry:  {expr: "t.country", match: matchEquality, includable: true},
	CategoryProducer: {expr: "t.producer", match: matchEquality},
	CategoryEngineer: {expr: "t.engineer", match: matchEquality},
}

// AllCategories returns the known categories in a stable order.
func AllCategories() []Category {
	out := make([]Category, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LyricsFilter is a free-text match on track lyrics. WholeWord is
// approximated with space-padded substring matching; matches at the very
// start or end of the text, or next to punctuation, are missed.
type LyricsFilter struct {
	Text          string `toml:"text"`
	CaseSensitive bool   `toml:"case_sensitive"`
	WholeWord     bool   `toml:"whole_word"`
}

func (f LyricsFilter) IsZero() bool {
	return f.Text == ""
}

// FilterSet is the persisted per-profile filter state. When both lists are
// set for an includable category, the inclusion list wins and the exclusion
// list is ignored.
type FilterSet struct {
	Excluded map[Category][]string `toml:"excluded"`
	Included map[Category][]string `toml:"included"`

	Lyrics        LyricsFilter `toml:"lyrics"`
	FavoritesOnly bool         `toml:"favorites_only"`
}

func NewFilterSet() *FilterSet {
	return &FilterSet{
		Excluded: make(map[Category][]string),
		Included: make(map[Category][]string),
	}
}

func (f *FilterSet) SetExcluded(c Category, values []string) {
	if f.Excluded == nil {
		f.Excluded = make(map[Category][]string)
	}
	if len(values) == 0 {
		delete(f.Excluded, c)
		return
	}
	f.Excluded[c] = values
}

func (f *FilterSet) SetIncluded(c Category, values []string) {
	if f.Included == nil {
		f.Included = make(map[Category][]string)
	}
	if len(values) == 0 {
		delete(f.Included, c)
		return
	}
	f.Included[c] = values
}

func (f *FilterSet) ExcludedValues(c Category) []string {
	return f.Excluded[c]
}

func (f *FilterSet) IncludedValues(c Category) []string {
	return f.Included[c]
}

// ClearAll drops every filter, including lyrics and the favorites toggle.
func (f *FilterSet) ClearAll() {
	f.Excluded = make(map[Category][]string)
	f.Included = make(map[Category][]string)
	f.Lyrics = LyricsFilter{}
	f.FavoritesOnly = false
}

// SessionFilters is a non-persisted allow-list overlay for one play session.
// It covers artists, albums, genres and folders and takes precedence over the
// FilterSet exclusions for those categories.
type SessionFilters struct {
	Allowed map[Category][]string
}

func NewSessionFilters() *SessionFilters {
	return &SessionFilters{Allowed: make(map[Category][]string)}
}

func (s *SessionFilters) Set(c Category, values []string) {
	meta, ok := categories[c]
	if !ok || !meta.session {
		return
	}
	if s.Allowed == nil {
		s.Allowed = make(map[Category][]string)
	}
	if len(values) == 0 {
		delete(s.Allowed, c)
		return
	}
	s.Allowed[c] = values
}

func (s *SessionFilters) Values(c Category) []string {
	if s == nil {
		return nil
	}
	return s.Allowed[c]
}

func (s *SessionFilters) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, v := range s.Allowed {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

func (s *SessionFilters) Clear() {
	s.Allowed = make(map[Category][]string)
}
