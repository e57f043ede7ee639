// Package viewmodel projects raw records onto the flat shapes the portal
// renders.
package viewmodel

import (
	"fmt"
	"strings"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/status"
)

// Kind is a content type as named in URLs and request bodies.
type Kind string

const (
	KindKeywords  Kind = "keywords"
	KindBriefs    Kind = "briefs"
	KindArticles  Kind = "articles"
	KindBacklinks Kind = "backlinks"
)

var Kinds = []Kind{KindKeywords, KindBriefs, KindArticles, KindBacklinks}

// ParseKind accepts plural or singular names in any case.
func ParseKind(value string) (Kind, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if !strings.HasSuffix(v, "s") {
		v += "s"
	}
	for _, k := range Kinds {
		if string(k) == v {
			return k, true
		}
	}
	return "", false
}

// Label is the singular display name used in the base ("Article").
func (k Kind) Label() string {
	switch k {
	case KindKeywords:
		return "Keyword"
	case KindBriefs:
		return "Brief"
	case KindArticles:
		return "Article"
	case KindBacklinks:
		return "Backlinks"
	default:
		return ""
	}
}

// Table is the base table holding rows of this kind. Keywords, briefs and
// articles share one table.
func (k Kind) Table() string {
	if k == KindBacklinks {
		return "Backlinks"
	}
	return "Keywords"
}

// Fields is the candidate table for this kind.
func (k Kind) Fields() fields.Table {
	switch k {
	case KindBriefs:
		return fields.BriefFields
	case KindArticles:
		return fields.ArticleFields
	case KindBacklinks:
		return fields.BacklinkFields
	default:
		return fields.KeywordFields
	}
}

// Base holds the attributes every view model shares.
type Base struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Status        status.Canonical `json:"status"`
	RawStatus     string           `json:"rawStatus"`
	DueDate       string           `json:"dueDate"`
	Month         string           `json:"month"`
	Client        []string         `json:"client"`
	ContentType   string           `json:"contentType"`
	AssignedTo    []string         `json:"assignedTo"`
	RevisionNotes string           `json:"revisionNotes"`
	CommentIDs    []string         `json:"commentIds"`
	Owners        []string         `json:"owners"`
}

// ClientIDs implements rbac.Scoped.
func (b Base) ClientIDs() []string { return b.Client }

// OwnerIDs implements rbac.Scoped.
func (b Base) OwnerIDs() []string { return b.Owners }

// ItemID is the record id.
func (b Base) ItemID() string { return b.ID }

type Keyword struct {
	Base
	PrimaryKeyword string  `json:"primaryKeyword"`
	SearchVolume   float64 `json:"searchVolume"`
	Difficulty     float64 `json:"difficulty"`
	CurrentRank    float64 `json:"currentRank"`
	SEOStrategist  string  `json:"seoStrategist"`
}

type Brief struct {
	Base
	Writer        string `json:"writer"`
	SEOStrategist string `json:"seoStrategist"`
	DocumentLink  string `json:"documentLink"`
}

type Article struct {
	Base
	Writer       string  `json:"writer"`
	Editor       string  `json:"editor"`
	WordCount    float64 `json:"wordCount"`
	ArticleURL   string  `json:"articleUrl"`
	DocumentLink string  `json:"documentLink"`
}

type Backlink struct {
	Base
	Domain       string  `json:"domain"`
	DomainRating float64 `json:"domainRating"`
	LinkType     string  `json:"linkType"`
	SourceURL    string  `json:"sourceUrl"`
	TargetURL    string  `json:"targetUrl"`
	LiveDate     string  `json:"liveDate"`
}

func base(kind Kind, record airtable.Record) Base {
	table := kind.Fields()
	bag := record.Fields
	raw := fields.String(bag, table.Candidates(fields.Status))
	contentType := fields.String(bag, table.Candidates(fields.ContentType))
	if contentType == "" || kind == KindBacklinks {
		contentType = kind.Label()
	}
	return Base{
		ID:            record.ID,
		Title:         fields.String(bag, table.Candidates(fields.Title)),
		Status:        status.Map(raw, bag),
		RawStatus:     raw,
		DueDate:       fields.String(bag, table.Candidates(fields.DueDate)),
		Month:         fields.String(bag, table.Candidates(fields.Month)),
		Client:        fields.Strings(bag, table.Candidates(fields.Client)),
		ContentType:   contentType,
		AssignedTo:    fields.Strings(bag, table.Candidates(fields.AssignedTo)),
		RevisionNotes: fields.String(bag, table.Candidates(fields.RevisionNotes)),
		CommentIDs:    fields.Strings(bag, table.Candidates(fields.Comments)),
		Owners:        fields.OwnerIDs(bag),
	}
}

func ToKeyword(record airtable.Record) Keyword {
	t := fields.KeywordFields
	bag := record.Fields
	return Keyword{
		Base:           base(KindKeywords, record),
		PrimaryKeyword: fields.String(bag, t.Candidates(fields.PrimaryKeyword)),
		SearchVolume:   fields.Number(bag, t.Candidates(fields.SearchVolume)),
		Difficulty:     fields.Number(bag, t.Candidates(fields.Difficulty)),
		CurrentRank:    fields.Number(bag, t.Candidates(fields.CurrentRank)),
		SEOStrategist:  fields.String(bag, t.Candidates(fields.SEOStrategist)),
	}
}

func ToBrief(record airtable.Record) Brief {
	t := fields.BriefFields
	bag := record.Fields
	return Brief{
		Base:          base(KindBriefs, record),
		Writer:        fields.String(bag, t.Candidates(fields.Writer)),
		SEOStrategist: fields.String(bag, t.Candidates(fields.SEOStrategist)),
		DocumentLink:  fields.String(bag, t.Candidates(fields.DocumentLink)),
	}
}

func ToArticle(record airtable.Record) Article {
	t := fields.ArticleFields
	bag := record.Fields
	return Article{
		Base:         base(KindArticles, record),
		Writer:       fields.String(bag, t.Candidates(fields.Writer)),
		Editor:       fields.String(bag, t.Candidates(fields.Editor)),
		WordCount:    fields.Number(bag, t.Candidates(fields.WordCount)),
		ArticleURL:   fields.String(bag, t.Candidates(fields.ArticleURL)),
		DocumentLink: fields.String(bag, t.Candidates(fields.DocumentLink)),
	}
}

func ToBacklink(record airtable.Record) Backlink {
	t := fields.BacklinkFields
	bag := record.Fields
	return Backlink{
		Base:         base(KindBacklinks, record),
		Domain:       fields.String(bag, t.Candidates(fields.Domain)),
		DomainRating: fields.Number(bag, t.Candidates(fields.DomainRating)),
		LinkType:     fields.String(bag, t.Candidates(fields.LinkType)),
		SourceURL:    fields.String(bag, t.Candidates(fields.SourceURL)),
		TargetURL:    fields.String(bag, t.Candidates(fields.TargetURL)),
		LiveDate:     fields.String(bag, t.Candidates(fields.LiveDate)),
	}
}

// Item is any view model.
type Item interface {
	ClientIDs() []string
	OwnerIDs() []string
	ItemID() string
}

// FromRecord maps record according to kind.
func FromRecord(kind Kind, record airtable.Record) (Item, error) {
	switch kind {
	case KindKeywords:
		return ToKeyword(record), nil
	case KindBriefs:
		return ToBrief(record), nil
	case KindArticles:
		return ToArticle(record), nil
	case KindBacklinks:
		return ToBacklink(record), nil
	default:
		return nil, fmt.Errorf("unknown content type %q", kind)
	}
}

// FromRecords maps every record; unknown kinds yield an empty list.
func FromRecords(kind Kind, records []airtable.Record) []Item {
	out := make([]Item, 0, len(records))
	for _, r := range records {
		item, err := FromRecord(kind, r)
		if err != nil {
			return []Item{}
		}
		out = append(out, item)
	}
	return out
}

// ResponseKey is the JSON key list endpoints wrap items in.
func (k Kind) ResponseKey() string { return string(k) }
