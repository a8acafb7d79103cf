package driven

import "github.com/custodia-labs/docscope/internal/core/domain"

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// InstructionStore provides the task instruction prepended to assembled context.
type InstructionStore interface {
	// Instructions returns the instruction for every task. Tasks missing
	// from the store fall back to domain.DefaultTaskInstructions.
	Instructions() (map[domain.Task]string, error)
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptMultiQuery asks for paraphrases.
	// Placeholders: %d (count), %s (query).
	PromptMultiQuery = "multi_query"

	// PromptHyDE asks for a hypothetical passage answering the query.
	// Placeholders: %s (query).
	PromptHyDE = "hyde"

	// PromptStepBack asks for a broader version of the query.
	// Placeholders: %s (query).
	PromptStepBack = "step_back"

	// PromptAgentic asks for the next search query or DONE.
	// Placeholders: %s (original query), %s (history).
	PromptAgentic = "agentic"

	// PromptRerank asks for one relevance score per candidate.
	// Placeholders: %s (query), %d (count), %s (candidates), %d (count).
	PromptRerank = "rerank"

	// PromptSelector asks for descriptor indices worth loading.
	// Placeholders: %s (query), %d (max), %s (descriptors).
	PromptSelector = "selector"

	// PromptIntent asks for a JSON intent object.
	// Placeholders: %s (document type), %s (chapter numbers), %s (query).
	PromptIntent = "intent"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts returns the built-in template for every well-known prompt.
// File-backed stores seed their directory from it; services use it when no
// store is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptMultiQuery: `Generate %d alternative search queries for the question below.
Keep the language of the question. Use synonyms and different wording, keep the meaning.
Return one query per line, without numbering or commentary.

Question: %s`,

		PromptHyDE: `Write a short passage (3-5 sentences) that could appear in a document and answers the question below.
Write in the language of the question. Return only the passage.

Question: %s`,

		PromptStepBack: `Rewrite the question below as a broader, more general question about the underlying topic.
Keep the language of the question. Return only the new question.

Question: %s`,

		PromptAgentic: `You are searching a document collection to answer a question.

Question: %s

Searches so far (query -> number of results):
%s

If the results are enough to answer the question, reply with exactly DONE.
Otherwise reply with the next search query only.`,

		PromptRerank: `Rate how relevant each passage is to the query on a scale from 0 (irrelevant) to 10 (answers it directly).

Query: %s

There are %d passages:
%s

Return ONLY a JSON array of %d numbers, one score per passage in the same order.`,

		PromptSelector: `A user asked: %s

Below are short descriptions of document fragments. Choose at most %d fragments most likely to contain the answer.

%s

Return ONLY a JSON array of fragment numbers, for example [0, 4, 7].`,

		PromptIntent: `Classify a question about a document.

Document type: %s
Known chapters: %s

Question: %s

Return ONLY a JSON object with these fields:
- "scope": one of single_section, multiple_sections, full_document, comparison, search
- "sections": array of chapter numbers from the known chapters (empty unless scope names sections)
- "task": one of summarize, analyze, find_data, find_loopholes, find_contradictions, find_penalties, find_requirements, find_deadlines, compare, explain, search
- "search_query": the question rewritten as a search query
- "reasoning": one sentence explaining the choice`,
	}
}
