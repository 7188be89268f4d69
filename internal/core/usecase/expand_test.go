package usecase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

func newTestExpander() *Expander {
	return NewExpander(DefaultSynonymTable(), []string{"Asker Fotball", "asker fk", "føyka"})
}

func TestExpandAddsSynonymsAndPreferredTypes(t *testing.T) {
	exp := newTestExpander().Expand("hva koster et sesongkort")

	if len(exp.Terms) == 0 {
		t.Fatalf("expected extra terms for ticket query")
	}
	if _, ok := exp.Preferred[domain.DocTypeTicketing]; !ok {
		t.Fatalf("expected ticketing in preferred types, got %v", exp.Preferred)
	}
	if !strings.HasPrefix(exp.Query, "hva koster et sesongkort ") {
		t.Fatalf("expanded query must keep the original prefix, got %q", exp.Query)
	}
	if !strings.Contains(exp.Query, "sesongabonnement") {
		t.Fatalf("expected synonym 'sesongabonnement' in expanded query, got %q", exp.Query)
	}
}

func TestExpandTermsAreSortedAndDeduplicated(t *testing.T) {
	exp := newTestExpander().Expand("billettpriser og kampbilletter")

	seen := make(map[string]struct{}, len(exp.Terms))
	for i, term := range exp.Terms {
		if _, dup := seen[term]; dup {
			t.Fatalf("duplicate term %q", term)
		}
		seen[term] = struct{}{}
		if i > 0 && exp.Terms[i-1] > term {
			t.Fatalf("terms not sorted: %q before %q", exp.Terms[i-1], term)
		}
	}
}

func TestExpandWithoutTriggerReturnsQueryUnchanged(t *testing.T) {
	query := "hvem vant ligaen i 1998"
	exp := newTestExpander().Expand(query)

	if exp.Query != query {
		t.Fatalf("expected unchanged query, got %q", exp.Query)
	}
	if len(exp.Terms) != 0 || len(exp.Preferred) != 0 {
		t.Fatalf("expected empty expansion, got terms=%v preferred=%v", exp.Terms, exp.Preferred)
	}
}

func TestExpandStripsClubNamesBeforeMatching(t *testing.T) {
	// "fk" alone must not survive the strip and trip a trigger.
	exp := newTestExpander().Expand("Asker FK")
	if len(exp.Terms) != 0 {
		t.Fatalf("club name alone must not expand, got %v", exp.Terms)
	}

	withTrigger := newTestExpander().Expand("Asker Fotball billetter")
	if _, ok := withTrigger.Preferred[domain.DocTypeTicketing]; !ok {
		t.Fatalf("trigger after club-name strip must still match")
	}
}

func TestLoadSynonymTableFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	raw := "topics:\n  - name: cup\n    doc_type: schedule\n    triggers: [\"cup\", \"cup final\"]\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write synonyms: %v", err)
	}

	table, err := LoadSynonymTable(path)
	if err != nil {
		t.Fatalf("LoadSynonymTable() error = %v", err)
	}
	if len(table.Topics) != 1 || table.Topics[0].Name != "cup" {
		t.Fatalf("unexpected table %+v", table)
	}
	if table.Topics[0].DocType != domain.DocTypeSchedule {
		t.Fatalf("expected schedule hint, got %q", table.Topics[0].DocType)
	}
}
