package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const maintainabilityPromptTemplate = `You are performing a legal maintainability check.

STRICT RULES:
- Do NOT cite penal code sections
- Do NOT mention the Constitution
- Do NOT decide guilt
- Do NOT assume missing facts

INCIDENT:
%s

Respond with EXACTLY ONE:
CRIMINAL MAINTAINABLE
CIVIL MAINTAINABLE
NOT MAINTAINABLE`

const constitutionalPromptTemplate = `You are assisting in constitutional screening.

RULES:
- Use ONLY the constitutional provisions below
- If no constitutional adjudication is required, respond EXACTLY:
NO CONSTITUTIONAL ISSUE

INCIDENT:
%s

CONSTITUTIONAL PROVISIONS:
%s

TASK:
State whether this incident requires constitutional adjudication.`

// Article is a constitutional provision supplied to the screening prompt.
type Article struct {
	Title string
	Text  string
}

// ConstitutionalResult is the outcome of constitutional screening. Advisory
// only; never persisted.
type ConstitutionalResult struct {
	Violation bool     `json:"constitutional_violation"`
	Context   []string `json:"constitutional_context"`
	Analysis  string   `json:"analysis"`
}

// CheckMaintainability classifies an incident as criminal, civil, or not
// maintainable. Fail-closed: any unparseable or failed completion (including
// the Inconclusive sentinel) collapses to NotMaintainable.
func CheckMaintainability(ctx context.Context, completer Completer, incident string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	result, err := completer.Complete(ctx, fmt.Sprintf(maintainabilityPromptTemplate, incident))
	if err != nil {
		logger.Warn("maintainability check unavailable", zap.Error(err))
		return NotMaintainable
	}

	switch result {
	case CriminalMaintainable, CivilMaintainable, NotMaintainable:
		return result
	}
	return NotMaintainable
}

// CheckConstitutional analyzes an incident against the supplied candidate
// articles. Articles with blank text are skipped; with no usable articles
// the result is the no-issue outcome without any completion call.
func CheckConstitutional(ctx context.Context, completer Completer, incident string, articles []Article, logger *zap.Logger) ConstitutionalResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	formatted := make([]string, 0, len(articles))
	contextRefs := make([]string, 0, len(articles))
	for _, a := range articles {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		title := a.Title
		if title == "" {
			title = "Unknown Article"
		}
		formatted = append(formatted, title+"\n"+a.Text)
		contextRefs = append(contextRefs, title)
	}

	if len(formatted) == 0 {
		return ConstitutionalResult{
			Violation: false,
			Context:   []string{},
			Analysis:  NoConstitutionalIssue,
		}
	}

	prompt := fmt.Sprintf(constitutionalPromptTemplate, incident, strings.Join(formatted, "\n\n"))

	analysis, err := completer.Complete(ctx, prompt)
	if err != nil {
		logger.Warn("constitutional check unavailable", zap.Error(err))
		analysis = Inconclusive
	}

	return ConstitutionalResult{
		Violation: !strings.Contains(analysis, NoConstitutionalIssue),
		Context:   contextRefs,
		Analysis:  analysis,
	}
}
