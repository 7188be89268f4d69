package classify

import (
	"strings"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

const prefixRunes = 400

// categoryRule maps a doc type to its trigger keywords. Rules are checked
// in declaration order; keyword spaces overlap (a venue page mentions
// parking and contact), so the first match wins for reproducibility.
type categoryRule struct {
	docType  domain.DocType
	keywords []string
}

// KeywordClassifier assigns a coarse topical category from the filename
// plus a bounded prefix of the content. Keywords are Norwegian because
// the knowledge base is; filenames are often English-ish slugs, so a few
// slug words appear too.
type KeywordClassifier struct {
	rules []categoryRule
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: []categoryRule{
		{domain.DocTypeTicketing, []string{
			"billett", "billetter", "sesongkort", "foyka+", "foyka plus",
			"pris", "kostnad", "inngang", "adgang", "ticket",
		}},
		{domain.DocTypeSchedule, []string{
			"terminliste", "kamp", "kamper", "resultat", "resultater",
			"tabell", "serie", "postnord",
		}},
		{domain.DocTypeContact, []string{
			"kontakt", "telefon", "tlf", "mail", "e-post", "epost",
			"adresse", "kirkeveien", "postadresse",
		}},
		{domain.DocTypeCommunity, []string{
			"samfunn", "gatelag", "asker united", "hæppe", "brobygger",
			"samfunnslag", "aktivt lokalsamfunn", "sammen for fotball",
		}},
		{domain.DocTypeHistory, []string{
			"historie", "historisk", "stiftet", "grunnlagt", "rekord",
			"adelskalender", "fakta", "legender",
		}},
		{domain.DocTypeVenue, []string{
			"stadion", "føyka", "foyka", "fotballhuset", "tribune",
			"kapasitet", "parkering", "vip", "medie",
		}},
		{domain.DocTypeRoster, []string{
			"a-lag", "spillere", "spillertropp", "keeper", "forsvar",
			"midtbane", "angrep", "trener", "lag",
		}},
		{domain.DocTypeSponsorship, []string{
			"marked", "partner", "sponsor", "synlighet", "nettverk",
			"sponsoravtale",
		}},
		{domain.DocTypeActivities, []string{
			"akademi", "camp", "obos", "trening", "aktivitet", "kurs", "leir",
		}},
	}}
}

func (c *KeywordClassifier) Classify(filename, text string) domain.DocType {
	haystack := lowerPrefix(filename, text)
	for _, rule := range c.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.docType
			}
		}
	}
	return domain.DocTypeUnknown
}

func lowerPrefix(filename, text string) string {
	runes := []rune(text)
	if len(runes) > prefixRunes {
		runes = runes[:prefixRunes]
	}
	return strings.ToLower(filename + " " + string(runes))
}
