package assistant

import (
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/onnwee/golocal/internal/place"
)

const systemPrompt = "Você é um guia turístico local de Peruíbe, no litoral sul de São Paulo. " +
	"Responda em português do Brasil, de forma curta e prática, usando apenas as informações " +
	"do local fornecidas e conhecimento geral confiável. Se não souber, diga que não sabe."

// PlaceContext is the place information sent along with a question.
type PlaceContext struct {
	Name        string
	Category    string
	Description string
	Hours       string
	Fee         string
	Difficulty  string
	Tips        string
	Trivia      string
	Keywords    []string
}

// ContextFor extracts the prompt context from a place.
func ContextFor(p place.Place) PlaceContext {
	return PlaceContext{
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Hours:       p.Hours,
		Fee:         p.Fee,
		Difficulty:  p.Difficulty,
		Tips:        p.Tips,
		Trivia:      p.Trivia,
		Keywords:    p.Keywords,
	}
}

// BuildMessages renders the chat messages for a question. Empty context
// fields are omitted.
func BuildMessages(pc PlaceContext, question string) []openai.ChatCompletionMessage {
	var b strings.Builder
	b.WriteString("Local: ")
	b.WriteString(pc.Name)
	b.WriteByte('\n')
	writeField(&b, "Categoria", pc.Category)
	writeField(&b, "Descrição", pc.Description)
	writeField(&b, "Horário", pc.Hours)
	writeField(&b, "Entrada", pc.Fee)
	writeField(&b, "Dificuldade", pc.Difficulty)
	writeField(&b, "Dicas", pc.Tips)
	writeField(&b, "Curiosidades", pc.Trivia)
	writeList(&b, "Palavras-chave", pc.Keywords)
	b.WriteString("\nPergunta: ")
	b.WriteString(question)

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: b.String()},
	}
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	writeField(b, label, strings.Join(values, "; "))
}
