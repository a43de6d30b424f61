package assistant

import (
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/onnwee/golocal/internal/place"
)

func TestBuildMessages(t *testing.T) {
	pc := ContextFor(place.Place{
		Name:       "Mirante da Torre",
		Category:   "Mirante",
		Difficulty: "Moderada",
		Keywords:   []string{"pôr do sol", "vista"},
	})

	msgs := BuildMessages(pc, "Vale a pena ao entardecer?")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q", msgs[0].Role)
	}

	user := msgs[1].Content
	for _, want := range []string{
		"Local: Mirante da Torre",
		"Categoria: Mirante",
		"Dificuldade: Moderada",
		"Palavras-chave: pôr do sol; vista",
		"Pergunta: Vale a pena ao entardecer?",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
	for _, absent := range []string{"Horário", "Entrada", "Dicas"} {
		if strings.Contains(user, absent) {
			t.Errorf("empty field %q should be omitted", absent)
		}
	}
}
