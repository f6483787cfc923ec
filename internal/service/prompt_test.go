package service

import (
	"strings"
	"testing"

	"smishing-guard/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_WithExamples(t *testing.T) {
	examples := []models.Example{
		{ID: 1, Content: "[국외발신] 택배 주소 불일치\n확인 바랍니다", Label: models.LabelFraud},
		{ID: 2, Content: "엄마 나 폰 고장났어", Label: models.LabelFraud},
	}
	prompt := BuildPrompt(examples, "귀하의 계좌가 정지되었습니다")

	assert.Contains(t, prompt, "- [국외발신] 택배 주소 불일치 확인 바랍니다\n")
	assert.Contains(t, prompt, "- 엄마 나 폰 고장났어\n")
	assert.NotContains(t, prompt, NoSimilarCases)
	assert.Contains(t, prompt, "<위험도 0-100>|<설명>")
	assert.True(t, strings.HasSuffix(prompt, "[분석할 문자]\n귀하의 계좌가 정지되었습니다"))

	// examples are listed in retrieval order
	assert.Less(t, strings.Index(prompt, "택배"), strings.Index(prompt, "엄마"))
}

func TestBuildPrompt_NoExamples(t *testing.T) {
	prompt := BuildPrompt(nil, "안녕하세요")

	assert.Contains(t, prompt, NoSimilarCases)
	assert.NotContains(t, prompt, "\n- ")
	assert.Contains(t, prompt, ScoreDelimiter)
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	examples := []models.Example{{ID: 3, Content: "대출 승인 안내"}}
	assert.Equal(t, BuildPrompt(examples, "msg"), BuildPrompt(examples, "msg"))
}

func TestBuildPrompt_AnswerExampleParses(t *testing.T) {
	// the sample answer embedded in the prompt must satisfy the parser
	prompt := BuildPrompt(nil, "x")
	idx := strings.Index(prompt, "예시: ")
	if assert.GreaterOrEqual(t, idx, 0) {
		line := strings.SplitN(prompt[idx+len("예시: "):], "\n", 2)[0]
		res := ParseResponse(line)
		assert.Equal(t, DegradationNone, res.Degradation)
		assert.Equal(t, 90, res.Score)
	}
}
