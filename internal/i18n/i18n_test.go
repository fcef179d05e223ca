package i18n

import (
	"context"
	"testing"
)

func initCtx(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initCtx(t, "en")

	if got := T(ctx, "StatusCorrect"); got != "CORRECT" {
		t.Errorf("T(StatusCorrect) = %q, want CORRECT", got)
	}
	if got := T(ctx, "ReportTitle"); got != "MEDICAL EXAM REPORT" {
		t.Errorf("T(ReportTitle) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initCtx(t, "ru")

	if got := T(ctx, "StatusCorrect"); got != "ВЕРНО" {
		t.Errorf("T(StatusCorrect) = %q, want ВЕРНО", got)
	}
}

func TestTemplateData(t *testing.T) {
	ctx := initCtx(t, "en")

	got := Td(ctx, "StatusWrong", map[string]any{"Answer": "B"})
	want := "WRONG (Your Answer: B)"
	if got != want {
		t.Errorf("Td(StatusWrong) = %q, want %q", got, want)
	}
}

func TestMissingIDFallsBack(t *testing.T) {
	ctx := initCtx(t, "en")

	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("T(NoSuchMessage) = %q, want the ID back", got)
	}
}

func TestNoLocalizerInContext(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// A bare context must fall back to the default localizer, not panic.
	if got := T(context.Background(), "StatusUnanswered"); got != "UNANSWERED" {
		t.Errorf("T without localizer = %q, want UNANSWERED", got)
	}
}

func TestUninitializedBundleFallsBack(t *testing.T) {
	saved := bundle
	bundle = nil
	t.Cleanup(func() { bundle = saved })

	// Before Init every lookup degrades to the message ID, never a panic.
	ctx := WithLocalizer(context.Background(), "en")
	if got := T(ctx, "StatusCorrect"); got != "StatusCorrect" {
		t.Errorf("T before Init = %q, want the ID back", got)
	}
	if got := Td(ctx, "StatusWrong", map[string]any{"Answer": "B"}); got != "StatusWrong" {
		t.Errorf("Td before Init = %q, want the ID back", got)
	}
}
