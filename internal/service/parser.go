package service

import (
	"strconv"
	"strings"
	"unicode"
)

// NeutralScore is the "uncertain" score used when the answer does not follow
// the score-then-explanation convention.
const NeutralScore = 50

const (
	minScore = 0
	maxScore = 100
)

// Degradation names the reason a classifier answer fell back to NeutralScore.
type Degradation string

const (
	DegradationNone             Degradation = ""
	DegradationMissingDelimiter Degradation = "missing_delimiter"
	DegradationNonNumericScore  Degradation = "non_numeric_score"
)

// ClassifierOutput is the score and explanation recovered from raw model text.
type ClassifierOutput struct {
	Score  int
	Reason string
}

type ParseResult struct {
	ClassifierOutput
	Degradation Degradation
	Clamped     bool
}

// ParseResponse never fails: every input resolves to a score in [0, 100].
func ParseResponse(raw string) ParseResult {
	text := strings.TrimSpace(raw)

	head, tail, found := strings.Cut(text, ScoreDelimiter)
	if !found {
		return ParseResult{
			ClassifierOutput: ClassifierOutput{Score: NeutralScore, Reason: text},
			Degradation:      DegradationMissingDelimiter,
		}
	}

	res := ParseResult{ClassifierOutput: ClassifierOutput{Reason: strings.TrimSpace(tail)}}

	digits := keepDigits(head)
	if digits == "" {
		res.Score = NeutralScore
		res.Degradation = DegradationNonNumericScore
		return res
	}

	score, err := strconv.Atoi(digits)
	if err != nil {
		// a digit-only string can only overflow
		score = maxScore + 1
	}

	res.Score, res.Clamped = clamp(score)
	return res
}

// keepDigits returns the decimal digits of s as ASCII, so fullwidth or
// other script digits ("９０") read the same as "90".
func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteByte('0' + byte(digitValue(r)))
		}
	}
	return b.String()
}

// digitValue relies on Unicode assigning decimal digits in contiguous runs of
// ten, zero first: the value is the count of digit predecessors modulo 10.
func digitValue(r rune) int {
	if r >= '0' && r <= '9' {
		return int(r - '0')
	}
	n := 0
	for p := r - 1; unicode.IsDigit(p); p-- {
		n++
	}
	return n % 10
}

func clamp(score int) (int, bool) {
	switch {
	case score < minScore:
		return minScore, true
	case score > maxScore:
		return maxScore, true
	default:
		return score, false
	}
}
