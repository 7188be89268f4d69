package usecase

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// SynonymTopic maps one domain topic to its trigger words and, when the
// topic implies a document category, the preferred DocType.
type SynonymTopic struct {
	Name     string         `yaml:"name"`
	Triggers []string       `yaml:"triggers"`
	DocType  domain.DocType `yaml:"doc_type,omitempty"`
}

type SynonymTable struct {
	Topics []SynonymTopic `yaml:"topics"`
}

// Expansion is the result of rewriting a user query: the expanded query
// string, the document categories to prefer during re-ranking, and the
// extra terms that were appended (sorted, deduplicated).
type Expansion struct {
	Query     string
	Preferred map[domain.DocType]struct{}
	Terms     []string
}

// Expander rewrites queries with the static synonym table. Club-name
// mentions are stripped first so brand words do not bias matching.
type Expander struct {
	topics    []SynonymTopic
	stripExpr *regexp.Regexp
}

func NewExpander(table SynonymTable, clubNames []string) *Expander {
	return &Expander{
		topics:    table.Topics,
		stripExpr: clubNameExpr(clubNames),
	}
}

func (e *Expander) Expand(query string) Expansion {
	lowered := strings.ToLower(query)
	if e.stripExpr != nil {
		lowered = e.stripExpr.ReplaceAllString(lowered, " ")
	}
	lowered = strings.TrimSpace(lowered)

	preferred := make(map[domain.DocType]struct{})
	extra := make(map[string]struct{})
	for _, topic := range e.topics {
		if !anyTrigger(lowered, topic.Triggers) {
			continue
		}
		if topic.DocType != "" {
			preferred[topic.DocType] = struct{}{}
		}
		for _, word := range topic.Triggers {
			extra[word] = struct{}{}
		}
	}

	if len(extra) == 0 {
		return Expansion{Query: query, Preferred: preferred, Terms: nil}
	}

	terms := make([]string, 0, len(extra))
	for term := range extra {
		terms = append(terms, term)
	}
	// Sorted for determinism, not ranking.
	sort.Strings(terms)

	return Expansion{
		Query:     query + " " + strings.Join(terms, " "),
		Preferred: preferred,
		Terms:     terms,
	}
}

func anyTrigger(query string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(query, trigger) {
			return true
		}
	}
	return false
}

func clubNameExpr(names []string) *regexp.Regexp {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(name))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// LoadSynonymTable reads a YAML synonym table from disk.
func LoadSynonymTable(path string) (SynonymTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SynonymTable{}, fmt.Errorf("read synonym table: %w", err)
	}
	var table SynonymTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return SynonymTable{}, fmt.Errorf("parse synonym table: %w", err)
	}
	return table, nil
}

// DefaultSynonymTable covers the club domain topics in the language of
// the knowledge base. Deployments can replace it with a YAML file via
// SYNONYMS_PATH.
func DefaultSynonymTable() SynonymTable {
	return SynonymTable{Topics: []SynonymTopic{
		{
			Name:     "billett",
			Triggers: []string{"billett", "billetter", "sesongkort", "sesong-kort", "sesongabonnement", "foyka+", "foyka plus", "pris", "priser", "kostnad", "inngang", "adgang"},
			DocType:  domain.DocTypeTicketing,
		},
		{
			Name:     "kamp",
			Triggers: []string{"kamp", "kamper", "terminliste", "kampdag", "kampdager", "avspark", "match", "program", "kampstart"},
			DocType:  domain.DocTypeSchedule,
		},
		{
			Name:     "parkering",
			Triggers: []string{"parkering", "parkere", "p-plass", "p-plasser", "parkeringsplass", "easypark", "bil"},
		},
		{
			Name:     "stadion",
			Triggers: []string{"stadion", "arena", "føyka", "foyka", "anlegg", "tribune", "stadio", "fotballhuset"},
			DocType:  domain.DocTypeVenue,
		},
		{
			Name:     "medlemskap",
			Triggers: []string{"medlemskap", "medlem", "kontingent", "medlemskontingent", "innmelding", "bli medlem"},
		},
		{
			Name:     "kontakt",
			Triggers: []string{"kontakt", "telefon", "tlf", "mail", "e-post", "email", "adresse", "epost"},
			DocType:  domain.DocTypeContact,
		},
		{
			Name:     "åpningstider",
			Triggers: []string{"åpningstider", "åpner", "åpent", "stengt", "åpningstid"},
		},
		{
			Name:     "sponsor",
			Triggers: []string{"sponsor", "sponsorer", "partner", "partnere", "marked", "bedriftsnettverk"},
		},
		{
			Name:     "samfunn",
			Triggers: []string{"samfunn", "gatelag", "asker united", "community", "sammen for fotball", "aktiviteter"},
			DocType:  domain.DocTypeCommunity,
		},
		{
			Name:     "historie",
			Triggers: []string{"historie", "historisk", "grunnlagt", "stiftet", "rekord", "legender", "fakta"},
			DocType:  domain.DocTypeHistory,
		},
		{
			Name:     "lag",
			Triggers: []string{"lag", "spillere", "spillertropp", "trener", "keeper", "forsvar", "midtbane", "angrep", "a-lag"},
			DocType:  domain.DocTypeRoster,
		},
		{
			Name:     "marked",
			Triggers: []string{"marked", "partner", "sponsor", "sponsorer", "nettverk", "synlighet"},
			DocType:  domain.DocTypeSponsorship,
		},
		{
			Name:     "aktivitet",
			Triggers: []string{"aktivitet", "akademi", "camp", "kurs", "leir", "trening", "lek"},
			DocType:  domain.DocTypeActivities,
		},
	}}
}
