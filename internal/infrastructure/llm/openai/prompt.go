package openai

import (
	"fmt"
	"strings"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

const systemInstruction = "Du er klubbassistenten til Asker Fotball. " +
	"Svar kort og presist på norsk, og bruk kun informasjonen i kildeutdragene under. " +
	"Hvis kildene ikke dekker spørsmålet, si 'Jeg vet ikke'."

// buildMessages lays out the conversation: one system message carrying
// the instruction and the retrieved passages, then the prior turns in
// order, then the current question.
func buildMessages(question string, hits []domain.SearchHit, history []domain.Turn) []chatMessage {
	var system strings.Builder
	system.WriteString(systemInstruction)
	if len(hits) > 0 {
		system.WriteString("\n\nKildeutdrag:")
		for i, hit := range hits {
			fmt.Fprintf(&system, "\n[%d] %s (%s)\n%s", i+1, hit.Title, hit.Source, hit.Text)
		}
	}

	messages := make([]chatMessage, 0, 2+2*len(history))
	messages = append(messages, chatMessage{Role: "system", Content: system.String()})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: "user", Content: turn.Question})
		messages = append(messages, chatMessage{Role: "assistant", Content: turn.Answer})
	}
	return append(messages, chatMessage{Role: "user", Content: question})
}
