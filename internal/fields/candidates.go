package fields

// Canonical view-model attributes. Each maps to the historical column names
// it has been stored under, most recent first.
const (
	Title          = "title"
	Status         = "status"
	DueDate        = "dueDate"
	Month          = "month"
	Client         = "client"
	ContentType    = "contentType"
	AssignedTo     = "assignedTo"
	Writer         = "writer"
	Editor         = "editor"
	SEOStrategist  = "seoStrategist"
	DocumentLink   = "documentLink"
	ArticleURL     = "articleUrl"
	WordCount      = "wordCount"
	PrimaryKeyword = "primaryKeyword"
	SearchVolume   = "searchVolume"
	Difficulty     = "difficulty"
	CurrentRank    = "currentRank"
	Domain         = "domain"
	DomainRating   = "domainRating"
	LinkType       = "linkType"
	SourceURL      = "sourceUrl"
	TargetURL      = "targetUrl"
	LiveDate       = "liveDate"
	RevisionNotes  = "revisionNotes"
	Comments       = "comments"
)

// Table is a declarative candidate table: canonical attribute to candidate
// column names in priority order.
type Table map[string][]string

// Candidates returns the candidate names for attr, or attr itself when the
// table has no entry.
func (t Table) Candidates(attr string) []string {
	if names, ok := t[attr]; ok {
		return names
	}
	return []string{attr}
}

// ClientCandidates is the single client-membership order applied everywhere.
var ClientCandidates = []string{"Clients", "Client", "client"}

// OwnerCandidates lists every column that can name the person a record is
// assigned to.
var OwnerCandidates = []string{
	"AssignedTo", "Assigned To",
	"Writer", "Content Writer",
	"Editor", "Content Editor",
	"SEOStrategist", "SEO Strategist",
	"ContentWriter", "ContentEditor",
}

var common = Table{
	Status:        {"Status", "Keyword/Content Status", "Content Status"},
	DueDate:       {"Due Date", "Due Date (Publication)", "Target Date", "DueDate"},
	Month:         {"Month", "Month (Keyword Targets)"},
	Client:        ClientCandidates,
	ContentType:   {"Content Type", "Type"},
	AssignedTo:    {"AssignedTo", "Assigned To"},
	RevisionNotes: {"Revision Notes", "Client Comments"},
	Comments:      {"Comments"},
}

func extend(base Table, extra Table) Table {
	out := make(Table, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// KeywordFields is the candidate table for keyword rows.
var KeywordFields = extend(common, Table{
	Title:          {"Main Keyword", "Keyword", "Title", "Name"},
	PrimaryKeyword: {"Main Keyword", "Keyword", "Primary Keyword"},
	SearchVolume:   {"Search Volume", "Volume", "SV"},
	Difficulty:     {"Keyword Difficulty", "Difficulty", "KD"},
	CurrentRank:    {"Current Rank", "Rank", "Position"},
	SEOStrategist:  {"SEO Strategist", "SEOStrategist", "SEO Assignee"},
})

// BriefFields is the candidate table for brief rows.
var BriefFields = extend(common, Table{
	Title:         {"Meta Title", "Title", "Brief Title", "Main Keyword", "Name"},
	Writer:        {"Content Writer", "Writer", "ContentWriter", "Assigned Writer"},
	SEOStrategist: {"SEO Strategist", "SEOStrategist", "SEO Assignee"},
	DocumentLink:  {"Content Brief Link (G Doc)", "Brief Link", "Document Link", "DocumentLink"},
	DueDate:       {"Due Date (Brief)", "Due Date", "Target Date", "DueDate"},
})

// ArticleFields is the candidate table for article rows.
var ArticleFields = extend(common, Table{
	Title:        {"Article Title", "Meta Title", "Title", "Main Keyword", "Name"},
	Writer:       {"Content Writer", "Writer", "ContentWriter", "Assigned Writer"},
	Editor:       {"Content Editor", "Editor", "ContentEditor"},
	WordCount:    {"Final Word Count", "Word Count", "WordCount", "Words"},
	ArticleURL:   {"Article URL", "Live URL", "Published URL", "URL"},
	DocumentLink: {"Content Link (G Doc)", "Article Link", "Document Link", "DocumentLink"},
	DueDate:      {"Due Date (Publication)", "Due Date", "Target Date", "DueDate"},
})

// BacklinkFields is the candidate table for backlink rows.
var BacklinkFields = extend(common, Table{
	Title:        {"Domain URL", "Source Domain", "Domain", "Name"},
	Domain:       {"Domain URL", "Source Domain", "Domain"},
	DomainRating: {"DR ( API )", "Domain Authority/Rating", "Domain Rating", "DR"},
	LinkType:     {"Link Type", "Type"},
	SourceURL:    {"Source URL", "Backlink URL", "Link URL"},
	TargetURL:    {"Target URL", "Target Page", "Client Target Page URL"},
	LiveDate:     {"Went Live On", "Live Date", "Date Live"},
	Status:       {"Status", "Backlink Status"},
	ContentType:  {"Content Type"},
})
