package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// DocumentStructure is what the intent analyzer knows about the target.
type DocumentStructure struct {
	DocumentType domain.DocumentType
	Chapters     []string
}

// IntentAnalyzer classifies queries into a retrieval scope and task.
type IntentAnalyzer struct {
	llm *completer
}

// NewIntentAnalyzer creates an analyzer. Without an LLM every query goes
// through the deterministic classifier.
func NewIntentAnalyzer(llm *completer) *IntentAnalyzer {
	return &IntentAnalyzer{llm: llm}
}

// Analyze classifies the query. It always returns a usable intent.
func (a *IntentAnalyzer) Analyze(ctx context.Context, query string, structure DocumentStructure) domain.Intent {
	intent, err := a.analyzeAI(ctx, query, structure)
	if err != nil {
		logger.Debug("intent analysis falling back to rules: %v", err)
		return FallbackIntent(query, structure.Chapters)
	}
	return intent
}

func (a *IntentAnalyzer) analyzeAI(ctx context.Context, query string, structure DocumentStructure) (domain.Intent, error) {
	chapters := "none"
	if len(structure.Chapters) > 0 {
		chapters = strings.Join(structure.Chapters, ", ")
	}
	docType := structure.DocumentType
	if docType == "" {
		docType = domain.DocumentTypeGeneric
	}

	answer, err := a.llm.complete(ctx, driven.PromptIntent, driven.GenerateOptions{
		MaxTokens:   300,
		Temperature: 0,
	}, string(docType), chapters, query)
	if err != nil {
		return domain.Intent{}, err
	}

	obj, err := parseJSONObject(answer)
	if err != nil {
		return domain.Intent{}, err
	}

	intent := domain.Intent{
		Scope:       domain.Scope(obj.Get("scope").String()),
		Task:        domain.Task(obj.Get("task").String()),
		SearchQuery: strings.TrimSpace(obj.Get("search_query").String()),
		Reasoning:   obj.Get("reasoning").String(),
		Method:      domain.IntentMethodAI,
	}
	if !intent.Scope.IsValid() {
		return domain.Intent{}, fmt.Errorf("%w: scope %q", domain.ErrMalformedOutput, intent.Scope)
	}
	if !intent.Task.IsValid() {
		return domain.Intent{}, fmt.Errorf("%w: task %q", domain.ErrMalformedOutput, intent.Task)
	}

	known := toSet(structure.Chapters)
	for _, s := range obj.Get("sections").Array() {
		number := strings.TrimSpace(s.String())
		if known[number] && !contains(intent.Sections, number) {
			intent.Sections = append(intent.Sections, number)
		}
	}
	if intent.Scope.IsSectional() && len(intent.Sections) == 0 {
		return domain.Intent{}, fmt.Errorf("%w: scope %s without known sections", domain.ErrMalformedOutput, intent.Scope)
	}
	if !intent.Scope.IsSectional() {
		intent.Sections = nil
	}
	if intent.SearchQuery == "" {
		intent.SearchQuery = query
	}
	return intent, nil
}

// Fallback classifier vocabulary. Stems cover inflected Russian forms.
var (
	yearPattern = regexp.MustCompile(`(^|\D)(1[5-9]\d{2}|20\d{2})(\D|$)`)

	dataIndicators = []string{
		"how many", "how much", "what number", "number of", "statistic", "percent", "amount of",
		"сколько", "количеств", "статистик", "процент", "число ",
	}
	wholeDocumentIndicators = []string{
		"overview", "entire", "whole document", "summarize the whole", "summarise the whole",
		"whole book", "full text", "everything",
		"весь документ", "всего документа", "целиком", "полностью", "обзор", "всю книгу",
	}
	comparisonIndicators = []string{
		"compare", "comparison", "difference between", "differences between", "versus", " vs ",
		"сравни", "сравнен", "разниц", "отличи", "отличает",
	}
	sectionIndicators = []string{
		"chapter", "article", "section", "part", "paragraph", "§",
		"глав", "стать", "раздел", "част", "параграф", "пункт",
	}

	// taskIndicators is evaluated in order; the first family that matches wins.
	taskIndicators = []struct {
		task  domain.Task
		words []string
	}{
		{domain.TaskFindLoopholes, []string{"loophole", "exception", "workaround", "get around", "лазейк", "исключени", "обойти"}},
		{domain.TaskFindContradictions, []string{"contradict", "inconsisten", "conflicting", "противореч", "несоответств"}},
		{domain.TaskFindPenalties, []string{"penalt", " fine ", " fines", "sanction", "штраф", "санкци", "наказан"}},
		{domain.TaskFindDeadlines, []string{"deadline", "time limit", "due date", "срок", "дедлайн"}},
		{domain.TaskFindRequirements, []string{"requirement", "obligation", "must ", "требовани", "обязан"}},
		{domain.TaskExplain, []string{"explain", "what does", "what is meant", "объясни", "что означает"}},
		{domain.TaskAnalyze, []string{"analyze", "analyse", "analysis", "проанализируй", "анализ"}},
		{domain.TaskSummarize, []string{"summarize", "summarise", "summary", "кратко", "перескажи", "резюм"}},
	}

	rangePattern  = regexp.MustCompile(`(\d+)\s*[-–—]\s*(\d+)`)
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)*|\b[IVXLCDM]+\b`)
)

// FallbackIntent is the deterministic classifier. Rules apply in order:
// data questions, whole-document requests, comparisons, task keywords,
// chapter numbers, then plain search.
func FallbackIntent(query string, knownChapters []string) domain.Intent {
	lower := strings.ToLower(query)
	intent := domain.Intent{
		Scope:       domain.ScopeSearch,
		Task:        domain.TaskSearch,
		SearchQuery: strings.TrimSpace(query),
		Method:      domain.IntentMethodRegexFallback,
	}
	if intent.SearchQuery == "" {
		intent.SearchQuery = query
	}

	if yearPattern.MatchString(query) || containsAny(lower, dataIndicators) {
		intent.Task = domain.TaskFindData
		intent.Reasoning = "data question: year or counting phrase"
		return intent
	}

	var reasons []string
	if containsAny(lower, wholeDocumentIndicators) {
		intent.Scope = domain.ScopeFullDocument
		intent.Task = domain.TaskSummarize
		reasons = append(reasons, "whole-document phrasing")
	}

	comparison := containsAny(lower, comparisonIndicators)
	if comparison {
		intent.Scope = domain.ScopeComparison
		intent.Task = domain.TaskCompare
		reasons = append(reasons, "comparison keywords")
	}

	if !comparison {
		for _, family := range taskIndicators {
			if containsAny(lower, family.words) {
				intent.Task = family.task
				reasons = append(reasons, string(family.task)+" keywords")
				break
			}
		}
	}

	if sections := chapterReferences(query, lower, knownChapters); len(sections) > 0 {
		intent.Sections = sections
		switch {
		case len(sections) == 1:
			intent.Scope = domain.ScopeSingleSection
			if intent.Task == domain.TaskCompare {
				intent.Task = domain.TaskAnalyze
			}
		case comparison:
			intent.Scope = domain.ScopeComparison
		default:
			intent.Scope = domain.ScopeMultipleSections
		}
		reasons = append(reasons, "chapter numbers "+strings.Join(sections, ", "))
	} else if intent.Scope == domain.ScopeComparison {
		// Nothing named to compare: search for the compared things instead.
		intent.Scope = domain.ScopeSearch
	}

	if len(reasons) == 0 {
		intent.Reasoning = "no rule matched: semantic search"
	} else {
		intent.Reasoning = strings.Join(reasons, "; ")
	}
	return intent
}

// chapterReferences returns known chapter numbers named in the query, in
// query order. Numbers only count when the query talks about sections.
func chapterReferences(query, lower string, knownChapters []string) []string {
	if len(knownChapters) == 0 || !containsAny(lower, sectionIndicators) {
		return nil
	}
	known := toSet(knownChapters)

	var sections []string
	add := func(n string) {
		if known[n] && !contains(sections, n) {
			sections = append(sections, n)
		}
	}

	// A dash range is intersected with the known chapters; once a range is
	// named, stray numbers elsewhere in the query are not chapter references.
	ranged := false
	for _, m := range rangePattern.FindAllStringSubmatch(query, -1) {
		from, errFrom := strconv.Atoi(m[1])
		to, errTo := strconv.Atoi(m[2])
		if errFrom != nil || errTo != nil || from > to {
			continue
		}
		ranged = true
		for _, k := range knownChapters {
			if n, err := strconv.Atoi(k); err == nil && n >= from && n <= to {
				add(k)
			}
		}
	}
	if ranged {
		sortNumeric(sections)
		return sections
	}

	for _, n := range numberPattern.FindAllString(query, -1) {
		add(n)
	}
	return sections
}

// sortNumeric orders numeric chapter ids ascending.
func sortNumeric(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		a, _ := strconv.Atoi(values[i])
		b, _ := strconv.Atoi(values[j])
		return a < b
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
