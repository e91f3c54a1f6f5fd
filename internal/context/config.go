// Package ctxengine builds model prompts: it trims a session history to a
// bounded window and assembles the role-tagged messages sent to a backend.
package ctxengine

// Prompt defaults. Templates are plain strings; ContextPlaceholder marks
// where retrieved context is interpolated in the RAG instruction.
const (
	DefaultWindow = 10

	ContextPlaceholder = "{context}"

	DefaultChatInstruction = "You are a helpful assistant. Answer the user's questions clearly and concisely."

	DefaultRAGInstruction = "You are a helpful assistant. Answer the user's question using only the context below. " +
		"If the context does not contain the answer, say that you do not know.\n\n" +
		"Context:\n" + ContextPlaceholder
)
