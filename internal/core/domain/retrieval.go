package domain

// DocType is the coarse topical category assigned to a chunk at ingestion.
type DocType string

const (
	DocTypeTicketing   DocType = "ticketing"
	DocTypeSchedule    DocType = "schedule"
	DocTypeContact     DocType = "contact"
	DocTypeCommunity   DocType = "community"
	DocTypeHistory     DocType = "history"
	DocTypeVenue       DocType = "venue"
	DocTypeRoster      DocType = "roster"
	DocTypeSponsorship DocType = "sponsorship"
	DocTypeActivities  DocType = "activities"
	DocTypeUnknown     DocType = "unknown"
)

// DontKnowAnswer is returned when no retrieved passage is confident
// enough. It is in the knowledge base's language, like the generation
// prompt that instructs the model to use the same phrase.
const DontKnowAnswer = "Jeg vet ikke"

// Chunk is the atomic retrievable unit: an overlap-bounded slice of a
// source document plus its provenance.
type Chunk struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	DocType     DocType `json:"doc_type"`
	ChunkIndex  int     `json:"chunk_index"`
	VersionDate *string `json:"version_date"`
	Page        *int    `json:"page"`
}

// SearchHit is a chunk with a per-query score. Raw similarity after search,
// blended score after re-ranking. Never persisted.
type SearchHit struct {
	Chunk
	Score float64 `json:"score"`
}

type Answer struct {
	Text    string      `json:"text"`
	Sources []SearchHit `json:"sources"`
}

// Turn is one prior question/answer exchange supplied by the caller.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
