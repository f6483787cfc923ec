package service

import (
	"strings"

	"smishing-guard/internal/models"
)

// ScoreDelimiter separates the score from the explanation in the classifier
// answer. BuildPrompt and ParseResponse must agree on it.
const ScoreDelimiter = "|"

// NoSimilarCases replaces the example list when retrieval found nothing.
const NoSimilarCases = "(유사 사례 없음)"

const promptPersona = `당신은 문자 사기(스미싱) 탐지 전문가입니다.
아래의 과거 스미싱 사례를 참고하여, 분석할 문자가 스미싱일 위험도를 판단하세요.`

const promptFormat = `[답변 형식]
반드시 한 줄로 "<위험도 0-100>` + ScoreDelimiter + `<설명>" 형식으로만 답하세요.
위험도는 0에서 100 사이의 정수이고, 설명은 사용자에게 보여줄 짧은 한국어 문장입니다.
예시: 90` + ScoreDelimiter + `위험해요! 절대 누르지 마세요.`

// BuildPrompt renders the classifier request. The output is a pure function
// of its arguments.
func BuildPrompt(examples []models.Example, message string) string {
	var b strings.Builder

	b.WriteString(promptPersona)
	b.WriteString("\n\n[과거 스미싱 사례]\n")
	if len(examples) == 0 {
		b.WriteString(NoSimilarCases)
		b.WriteString("\n")
	}
	for _, e := range examples {
		b.WriteString("- ")
		b.WriteString(singleLine(e.Content))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptFormat)
	b.WriteString("\n\n[분석할 문자]\n")
	b.WriteString(message)

	return b.String()
}

// singleLine keeps one example per bullet.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
