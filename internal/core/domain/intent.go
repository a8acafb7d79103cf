package domain

// Scope is the retrieval scope a query asks for.
type Scope string

// Retrieval scopes.
const (
	ScopeSingleSection    Scope = "single_section"
	ScopeMultipleSections Scope = "multiple_sections"
	ScopeFullDocument     Scope = "full_document"
	ScopeComparison       Scope = "comparison"
	ScopeSearch           Scope = "search"
)

// IsValid returns true if the scope is recognised.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeSingleSection, ScopeMultipleSections, ScopeFullDocument, ScopeComparison, ScopeSearch:
		return true
	default:
		return false
	}
}

// IsSectional returns true if the scope loads named chapters directly.
func (s Scope) IsSectional() bool {
	return s == ScopeSingleSection || s == ScopeMultipleSections || s == ScopeComparison
}

// Task is what the caller wants done with the retrieved content.
type Task string

// Query tasks.
const (
	TaskSummarize          Task = "summarize"
	TaskAnalyze            Task = "analyze"
	TaskFindData           Task = "find_data"
	TaskFindLoopholes      Task = "find_loopholes"
	TaskFindContradictions Task = "find_contradictions"
	TaskFindPenalties      Task = "find_penalties"
	TaskFindRequirements   Task = "find_requirements"
	TaskFindDeadlines      Task = "find_deadlines"
	TaskCompare            Task = "compare"
	TaskExplain            Task = "explain"
	TaskSearch             Task = "search"
)

// AllTasks returns every task in a stable order.
func AllTasks() []Task {
	return []Task{
		TaskSummarize, TaskAnalyze, TaskFindData, TaskFindLoopholes,
		TaskFindContradictions, TaskFindPenalties, TaskFindRequirements,
		TaskFindDeadlines, TaskCompare, TaskExplain, TaskSearch,
	}
}

// IsValid returns true if the task is recognised.
func (t Task) IsValid() bool {
	for _, known := range AllTasks() {
		if t == known {
			return true
		}
	}
	return false
}

// IntentMethod records how an intent was produced.
type IntentMethod string

// Intent classification methods.
const (
	IntentMethodAI            IntentMethod = "ai_analysis"
	IntentMethodRegexFallback IntentMethod = "regex_fallback"
)

// Intent is the classified scope and task of a query.
type Intent struct {
	Scope       Scope        `json:"scope"`
	Sections    []string     `json:"sections"`
	Task        Task         `json:"task"`
	SearchQuery string       `json:"search_query"`
	Reasoning   string       `json:"reasoning"`
	Method      IntentMethod `json:"method"`
}

// DefaultTaskInstructions maps each task to the instruction prepended to
// assembled context. Plain search has no instruction.
func DefaultTaskInstructions() map[Task]string {
	return map[Task]string{
		TaskSummarize: "Summarize the following material. Cover every part of it, " +
			"keep the original structure and name the key points of each section.",
		TaskAnalyze: "Analyze the following material in depth. Identify its main ideas, " +
			"how they are argued and what follows from them.",
		TaskFindData: "Extract the concrete facts, numbers, dates and names from the " +
			"following material that answer the question. Quote figures exactly.",
		TaskFindLoopholes: "Examine the following material for loopholes, exceptions and " +
			"ambiguous wording that could be used to avoid its requirements.",
		TaskFindContradictions: "Look for statements in the following material that " +
			"contradict each other or are inconsistent. Cite both sides of each conflict.",
		TaskFindPenalties: "List every penalty, fine, sanction or liability described in " +
			"the following material together with the conditions that trigger it.",
		TaskFindRequirements: "List every requirement, obligation and condition set out " +
			"in the following material and who it applies to.",
		TaskFindDeadlines: "List every deadline, time limit and period mentioned in the " +
			"following material and what each one applies to.",
		TaskCompare: "Compare the following sections. Describe what they have in common, " +
			"where they differ and how they relate to each other.",
		TaskExplain: "Explain the following material in plain language, defining terms " +
			"and giving the reasoning behind each point.",
		TaskSearch: "",
	}
}
