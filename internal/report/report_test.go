package report

import (
	"context"
	"strings"
	"testing"

	"github.com/examsim/medexam/internal/i18n"
	"github.com/examsim/medexam/internal/model"
	"github.com/examsim/medexam/internal/score"
)

func reportCtx(t *testing.T) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return i18n.WithLocalizer(context.Background(), "en")
}

func sampleQuestions() []model.QuestionRecord {
	return []model.QuestionRecord{
		{
			Question: "Most common cause of community-acquired pneumonia?",
			Options: model.OptionList{
				{Key: "A", Text: "Streptococcus pneumoniae"},
				{Key: "B", Text: "Mycoplasma pneumoniae"},
				{Key: "C", Text: "Haemophilus influenzae"},
			},
			Correct:     "A",
			Explanation: "S. pneumoniae remains the leading pathogen.",
			ExtraEdge:   "Atypical cover only when suspected.",
		},
		{
			Question: "Drug of choice for absence seizures?",
			Options: model.OptionList{
				{Key: "A", Text: "Carbamazepine"},
				{Key: "B", Text: "Ethosuximide"},
			},
			Correct:   "B",
			ExtraEdge: "N/A",
		},
		{
			Question: "Vignette: 55M with crushing chest pain. Next step?",
			Options: model.OptionList{
				{Key: "A", Text: "ECG"},
				{Key: "B", Text: "Troponin only"},
			},
			Correct: "A",
		},
	}
}

func TestFormat(t *testing.T) {
	ctx := reportCtx(t)
	questions := sampleQuestions()
	answers := map[int]string{0: "A", 1: "A"} // correct, wrong, third skipped
	result := score.Compute(questions, answers)

	text := Format(ctx, "Pulmonology", result, questions, answers)

	for _, want := range []string{
		"MEDICAL EXAM REPORT",
		"Topic: Pulmonology",
		"Score: 3/12",
		"Q1: Most common cause",
		"STATUS: CORRECT",
		"STATUS: WRONG (Your Answer: A)",
		"STATUS: UNANSWERED",
		" -> A: Streptococcus pneumoniae (Correct Answer)",
		"    B: Mycoplasma pneumoniae",
		" -> B: Ethosuximide (Correct Answer)",
		"EXPLANATION: S. pneumoniae remains the leading pathogen.",
		"EXTRA EDGE: Atypical cover only when suspected.",
		"EXPLANATION: " + model.ExplanationPlaceholder,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n---\n%s", want, text)
		}
	}

	// The "N/A" extra edge must be omitted entirely for Q2.
	if strings.Contains(text, "EXTRA EDGE: N/A") {
		t.Error("report should omit N/A extra edge")
	}
	if got := strings.Count(text, "EXTRA EDGE:"); got != 1 {
		t.Errorf("expected 1 extra edge line, got %d", got)
	}
}

func TestFormatDeterministic(t *testing.T) {
	ctx := reportCtx(t)
	questions := sampleQuestions()
	answers := map[int]string{0: "B", 2: "A"}
	result := score.Compute(questions, answers)

	first := Format(ctx, "Cardiology", result, questions, answers)
	second := Format(ctx, "Cardiology", result, questions, answers)
	if first != second {
		t.Error("Format is not deterministic")
	}
}

func TestFormatQuestionOrder(t *testing.T) {
	ctx := reportCtx(t)
	questions := sampleQuestions()
	result := score.Compute(questions, nil)

	text := Format(ctx, "Mixed", result, questions, nil)

	q1 := strings.Index(text, "Q1:")
	q2 := strings.Index(text, "Q2:")
	q3 := strings.Index(text, "Q3:")
	if q1 < 0 || q2 < 0 || q3 < 0 || !(q1 < q2 && q2 < q3) {
		t.Errorf("question blocks out of order: %d %d %d", q1, q2, q3)
	}
}
