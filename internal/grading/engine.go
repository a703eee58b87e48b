package grading

import (
	"bytes"
	"encoding/json"
)

// Q is a minimal view of a question needed for grading.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	Type           string
	Marks          float64
	NegativeMarks  float64
	IsGrace        bool
	CorrectIndices []int
	FillBlankText  string
	CaseSensitive  bool
	IsNumberRange  bool
	RangeMin       float64
	RangeMax       float64
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct bool
	Marks   float64 // may be negative (wrong answer on a negatively marked question)
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, value json.RawMessage) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, value json.RawMessage) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, value json.RawMessage) Result {
	// Grace overrides everything, including an absent answer.
	if q.IsGrace {
		return Result{Correct: true, Marks: q.Marks}
	}
	// Unattempted: never correct, never negatively marked.
	if isEmpty(value) {
		return Result{}
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}
	}
	return s.Grade(q, value)
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq":       mcqStrategy{},
			"msq":       msqStrategy{},
			"fillblank": fillBlankStrategy{},
		},
	}
}

// --- Strategies ---

type mcqStrategy struct{}

func (mcqStrategy) Grade(q Q, value json.RawMessage) Result {
	idx, ok := decodeIndex(value)
	if !ok {
		// answered but undecodable: wrong, no penalty
		return Result{}
	}
	if len(q.CorrectIndices) > 0 && idx == q.CorrectIndices[0] {
		return Result{Correct: true, Marks: q.Marks}
	}
	return Result{Marks: -q.NegativeMarks}
}

type msqStrategy struct{}

func (msqStrategy) Grade(q Q, value json.RawMessage) Result {
	idxs, ok := decodeIndices(value)
	if !ok {
		return Result{}
	}
	// Exact set match, order-insensitive. No partial credit.
	if len(q.CorrectIndices) > 0 && indexSetEqual(idxs, q.CorrectIndices) {
		return Result{Correct: true, Marks: q.Marks}
	}
	return Result{Marks: -q.NegativeMarks}
}

type fillBlankStrategy struct{}

func (fillBlankStrategy) Grade(q Q, value json.RawMessage) Result {
	text, ok := decodeScalar(value)
	if !ok {
		return Result{}
	}
	if q.IsNumberRange {
		v, numOK := parseFloatLoose(text)
		if numOK && v >= q.RangeMin && v <= q.RangeMax {
			return Result{Correct: true, Marks: q.Marks}
		}
		return Result{Marks: -q.NegativeMarks}
	}
	if textMatch(text, q.FillBlankText, q.CaseSensitive) {
		return Result{Correct: true, Marks: q.Marks}
	}
	return Result{Marks: -q.NegativeMarks}
}

// helpers

func isEmpty(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 ||
		bytes.Equal(t, []byte("null")) ||
		bytes.Equal(t, []byte(`""`)) ||
		bytes.Equal(t, []byte("[]"))
}

// decodeIndex accepts a JSON number or a numeric string.
func decodeIndex(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := parseFloatLoose(s); ok && v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func decodeIndices(raw json.RawMessage) ([]int, bool) {
	var idxs []int
	if err := json.Unmarshal(raw, &idxs); err != nil || len(idxs) == 0 {
		return nil, false
	}
	return idxs, true
}

// decodeScalar accepts a JSON string or number and yields its text form.
func decodeScalar(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func indexSetEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[int]int{}
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}
