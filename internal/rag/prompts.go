package rag

import (
	"fmt"
	"strings"

	"madison-ai/internal/llm"
)

// noRelevantText is the extractor's marker for a document with nothing to offer.
const noRelevantText = "No relevant text found"

const indexedInstructions = `You answer questions using only the passages retrieved from the selected documents.
Respond with a single JSON object and nothing else:
{"answer": "<your answer in Markdown>", "quotes": ["<verbatim passage you relied on>", ...]}
- Every quote must be copied exactly from a retrieved passage.
- If the passages do not contain the answer, say that you do not have enough information and return an empty quotes list.
- Give concise answers.`

const unscopedInstructions = `You are a helpful assistant.
No source documents were selected, so answer from general knowledge and say so when you are unsure.
Format the answer in Markdown and keep it concise.`

const extractInstructions = "Extract all relevant parts of the provided text in relation to the given question. " +
	"Respond only with direct quotes and their citations. If nothing is relevant, return '" + noRelevantText + "'."

const synthesisInstructions = `You are an AI assistant that provides accurate answers based strictly on the given context.
- Format all responses in Markdown.
- Do not generate content using information outside of the provided context.
- If the context lacks relevant information, explicitly state that you do not have enough data to answer.
- When possible, use direct quotes from the context and include references.
- When quoting or paraphrasing, always attribute the source using the format provided in the context, such as [Source: Author, *Title*, Chapter or Section].
- Give concise responses.`

// Question is the user's question with the turns that led to it.
type Question struct {
	Text         string
	Conversation []llm.Message
	Model        string
}

// Messages returns the conversation followed by the question as a user turn.
func (q Question) Messages() []llm.Message {
	msgs := make([]llm.Message, 0, len(q.Conversation)+1)
	msgs = append(msgs, q.Conversation...)
	return append(msgs, llm.Message{Role: "user", Content: q.Text})
}

// transcript renders the conversation, question included, one turn per line.
func (q Question) transcript() string {
	var b strings.Builder
	for i, m := range q.Messages() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}

func extractPrompt(q Question, author, title, text string) string {
	return fmt.Sprintf("Title: %s\nAuthor: %s\n\nConversation:\n%s\n\nQuestion: %s\n\nText:\n%s\n\n"+
		"Extract the relevant portion. If applicable, identify the chapter or section title:",
		title, author, q.transcript(), q.Text, text)
}

func synthesisPrompt(q Question, excerpts []string) string {
	return fmt.Sprintf("Context:\n%s\n\nConversation:\n%s\n\nProvide a well-formatted Markdown answer.",
		strings.Join(excerpts, "\n\n"), q.transcript())
}

// excerptHeader introduces one document's excerpts in the synthesis context.
func excerptHeader(author, title string) string {
	return fmt.Sprintf("----- Relevant excerpts from '%s' by %s -----", title, author)
}
