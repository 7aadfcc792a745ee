package types

import "time"

// EventTypes is the closed set of classifications an extraction may carry.
// Validation rejects anything outside this list.
var EventTypes = []string{
	"earnings",
	"merger",
	"acquisition",
	"lawsuit",
	"downgrade",
	"upgrade",
	"expansion",
	"regulation",
	"partnership",
	"bankruptcy",
	"other",
}

// Sentiments lists the allowed sentiment labels.
var Sentiments = []string{"positive", "neutral", "negative"}

// ValidEventType reports whether s is a member of EventTypes.
func ValidEventType(s string) bool {
	for _, et := range EventTypes {
		if s == et {
			return true
		}
	}
	return false
}

// ValidSentiment reports whether s is a member of Sentiments.
func ValidSentiment(s string) bool {
	for _, opt := range Sentiments {
		if s == opt {
			return true
		}
	}
	return false
}

// Candidate is a raw fetched feed item, not yet confirmed unique or persisted.
type Candidate struct {
	Title       string
	Source      string
	URL         string
	Content     string
	PublishedAt time.Time
}

// Article is a persisted news article. URL is the identity key: a second
// fetch of the same URL never creates a second record. Content is immutable
// after creation and Processed flips pending->processed exactly once.
type Article struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"publication_date,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Processed   bool       `json:"processed"`
}

// Span is a recognized entity occurrence with character offsets into the
// annotated text.
type Span struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// EntitySummary groups recognized spans by category. All holds every span
// regardless of category.
type EntitySummary struct {
	Organizations []Span `json:"organizations"`
	Persons       []Span `json:"persons"`
	Locations     []Span `json:"locations"`
	Money         []Span `json:"money"`
	Dates         []Span `json:"dates"`
	Percents      []Span `json:"percents"`
	All           []Span `json:"raw_ents"`
}

// Annotation is the annotator output persisted alongside an extracted event.
// Metrics holds raw surface text (no numeric parsing) of monetary, percentage
// and date spans for downstream human/LLM consumption.
type Annotation struct {
	Entities      EntitySummary       `json:"entities"`
	Metrics       map[string][]string `json:"metrics"`
	Companies     []string            `json:"companies"`
	TotalEntities int                 `json:"total_entities"`
}

// Extraction is a parsed provider response before semantic validation.
// Raw retains the decoded payload verbatim for audit.
type Extraction struct {
	Company    string
	Sector     string
	EventType  string
	Sentiment  string
	Confidence float64
	KeyMetrics map[string]string
	Summary    string
	Raw        map[string]any
}

// ExtractedEvent is a validated extraction bound to its parent article.
// Immutable once created; removed only by cascading deletion of the article.
type ExtractedEvent struct {
	ID          int64             `json:"id"`
	ArticleID   int64             `json:"article_id"`
	Company     string            `json:"company,omitempty"`
	Sector      string            `json:"sector,omitempty"`
	EventType   string            `json:"event_type"`
	Sentiment   string            `json:"sentiment"`
	Confidence  float64           `json:"confidence_score"`
	KeyMetrics  map[string]string `json:"key_metrics,omitempty"`
	Annotation  *Annotation       `json:"extracted_entities,omitempty"`
	Raw         map[string]any    `json:"llm_extraction,omitempty"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// CompanyCount is one row of the per-company event leaderboard.
type CompanyCount struct {
	Company string `json:"company"`
	Count   int64  `json:"count"`
}

// Summary aggregates the stored corpus for the reporting endpoint.
type Summary struct {
	TotalArticles int64            `json:"total_articles"`
	Processed     int64            `json:"processed"`
	Pending       int64            `json:"pending"`
	TotalEvents   int64            `json:"total_events"`
	BySentiment   map[string]int64 `json:"by_sentiment"`
	ByEventType   map[string]int64 `json:"by_event_type"`
	TopCompanies  []CompanyCount   `json:"top_companies"`
}

// IngestStats summarizes one ingestion pass.
type IngestStats struct {
	Fetched int `json:"total_fetched"`
	Saved   int `json:"saved"`
}

// ProcessStats summarizes one processing batch. Processed counts articles
// whose outcome was committed, including those that produced no event.
type ProcessStats struct {
	Attempted int `json:"attempted"`
	Processed int `json:"processed"`
	Events    int `json:"events"`
}
