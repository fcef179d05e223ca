package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func validRecord() QuestionRecord {
	return QuestionRecord{
		Question: "First-line treatment for anaphylaxis?",
		Options: OptionList{
			{Key: "A", Text: "IM adrenaline"},
			{Key: "B", Text: "IV hydrocortisone"},
			{Key: "C", Text: "Oral antihistamine"},
			{Key: "D", Text: "Nebulized salbutamol"},
		},
		Correct:     "A",
		Explanation: "Adrenaline is the only intervention that reduces mortality.",
		ExtraEdge:   "Dose: 0.5 mg IM (1:1000) in adults.",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuestionRecord)
		wantOK bool
	}{
		{"valid", func(q *QuestionRecord) {}, true},
		{"empty question", func(q *QuestionRecord) { q.Question = "  " }, false},
		{"one option", func(q *QuestionRecord) { q.Options = q.Options[:1] }, false},
		{"no options", func(q *QuestionRecord) { q.Options = nil }, false},
		{"empty correct", func(q *QuestionRecord) { q.Correct = "" }, false},
		{"correct not in options", func(q *QuestionRecord) { q.Correct = "E" }, false},
		{"two options ok", func(q *QuestionRecord) { q.Options = q.Options[:2] }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validRecord()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestOptionListOrderPreserved(t *testing.T) {
	// Keys deliberately not in alphabetical order.
	raw := `{"C":"third","A":"first","D":"fourth","B":"second"}`

	var opts OptionList
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	wantKeys := []string{"C", "A", "D", "B"}
	if !reflect.DeepEqual(opts.Keys(), wantKeys) {
		t.Errorf("Keys() = %v, want %v", opts.Keys(), wantKeys)
	}

	// Marshal must reproduce the same order.
	out, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("Marshal = %s, want %s", out, raw)
	}
}

func TestOptionListRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"array", `["A","B"]`},
		{"duplicate key", `{"A":"one","A":"two"}`},
		{"non-string value", `{"A":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts OptionList
			if err := json.Unmarshal([]byte(tt.raw), &opts); err == nil {
				t.Errorf("Unmarshal(%s) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestOptionListLookups(t *testing.T) {
	q := validRecord()
	if !q.Options.Has("B") {
		t.Error("Has(B) = false")
	}
	if q.Options.Has("Z") {
		t.Error("Has(Z) = true")
	}
	if got := q.Options.Get("C"); got != "Oral antihistamine" {
		t.Errorf("Get(C) = %q", got)
	}
	if got := q.Options.Get("Z"); got != "" {
		t.Errorf("Get(Z) = %q, want empty", got)
	}
}

func TestExplanationText(t *testing.T) {
	q := validRecord()
	if got := q.ExplanationText(); got != q.Explanation {
		t.Errorf("ExplanationText() = %q", got)
	}
	q.Explanation = " "
	if got := q.ExplanationText(); got != ExplanationPlaceholder {
		t.Errorf("ExplanationText() = %q, want placeholder", got)
	}
}

func TestHasExtraEdge(t *testing.T) {
	tests := []struct {
		edge string
		want bool
	}{
		{"Dose: 0.5 mg IM", true},
		{"", false},
		{"  ", false},
		{"N/A", false},
		{"n/a", false},
	}
	for _, tt := range tests {
		q := validRecord()
		q.ExtraEdge = tt.edge
		if got := q.HasExtraEdge(); got != tt.want {
			t.Errorf("HasExtraEdge(%q) = %v, want %v", tt.edge, got, tt.want)
		}
	}
}

func TestNormalizeAnswerKeys(t *testing.T) {
	raw := map[string]string{
		"0":    "A",
		"12":   "C",
		"oops": "B",
		"3":    "",
	}
	got := NormalizeAnswerKeys(raw)
	want := map[int]string{0: "A", 12: "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeAnswerKeys = %v, want %v", got, want)
	}
}

func TestAnswerKeysRoundTrip(t *testing.T) {
	answers := map[int]string{0: "A", 5: "D", 19: "B"}
	got := NormalizeAnswerKeys(StringAnswerKeys(answers))
	if !reflect.DeepEqual(got, answers) {
		t.Errorf("round trip = %v, want %v", got, answers)
	}
}
