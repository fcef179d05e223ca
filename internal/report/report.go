// Package report renders a plain-text summary of a submitted exam.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/examsim/medexam/internal/i18n"
	"github.com/examsim/medexam/internal/model"
	"github.com/examsim/medexam/internal/score"
)

const divider = "=================================================="

// Format produces the full text report: a header with topic and score,
// then one block per question in question order. It is deterministic for a
// given locale and has no side effects; the same text backs the on-screen
// review and the downloadable artifact.
func Format(ctx context.Context, topic string, result score.Result, questions []model.QuestionRecord, answers map[int]string) string {
	var sb strings.Builder

	sb.WriteString(i18n.T(ctx, "ReportTitle") + "\n")
	sb.WriteString(fmt.Sprintf("%s: %s\n", i18n.T(ctx, "ReportTopic"), topic))
	sb.WriteString(fmt.Sprintf("%s: %s\n", i18n.T(ctx, "ReportScore"), result.Label(len(questions))))
	sb.WriteString(divider + "\n\n")

	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("Q%d: %s\n", i+1, q.Question))
		sb.WriteString(fmt.Sprintf("%s: %s\n", i18n.T(ctx, "ReportStatus"), statusLine(ctx, q, answers[i])))

		sb.WriteString(i18n.T(ctx, "ReportOptions") + ":\n")
		for _, opt := range q.Options {
			if opt.Key == q.Correct {
				sb.WriteString(fmt.Sprintf(" -> %s: %s %s\n", opt.Key, opt.Text, i18n.T(ctx, "CorrectAnswerMark")))
			} else {
				sb.WriteString(fmt.Sprintf("    %s: %s\n", opt.Key, opt.Text))
			}
		}

		sb.WriteString(fmt.Sprintf("\n%s: %s\n", i18n.T(ctx, "ReportExplanation"), q.ExplanationText()))
		if q.HasExtraEdge() {
			sb.WriteString(fmt.Sprintf("%s: %s\n", i18n.T(ctx, "ReportExtraEdge"), q.ExtraEdge))
		}
		sb.WriteString(divider + "\n\n")
	}

	return sb.String()
}

func statusLine(ctx context.Context, q model.QuestionRecord, answer string) string {
	switch {
	case answer == "":
		return i18n.T(ctx, "StatusUnanswered")
	case answer == q.Correct:
		return i18n.T(ctx, "StatusCorrect")
	default:
		return i18n.Td(ctx, "StatusWrong", map[string]any{"Answer": answer})
	}
}
