package answer

import "strings"

const SystemPrompt = `당신은 엄격한 문서 기반 분석가입니다.
아래 '맥락(context)'에 포함된 내용으로만 답하세요.
맥락에 없는 사실, 수치, 해석은 절대 추가하지 마세요.
맥락이 불충분하면 '문서 근거가 부족합니다'라고 답하세요.
답변 마지막에 '출처' 섹션을 만들어 페이지 번호와 근거 문장을 요약해 표시하세요.`

// InsufficientEvidence is returned without calling the model when the
// retrieved context is too short to ground an answer.
const InsufficientEvidence = "문서 근거가 부족합니다. 질문을 더 구체화하거나 다른 페이지를 확인해 주세요."

const requirements = `[요구]
- 맥락 안에서만 추론 (외부 지식 사용 금지)
- 표/그림도 맥락 텍스트에 적힌 범위 내에서만 해석
- 핵심 요점 3~5개로 간결히
- 마지막에 '출처' 섹션 표기 (예: p.24, p.37 등)`

// BuildUserPrompt lays out the question, the context and the answering rules.
func BuildUserPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("[질문]\n")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\n[맥락]\n")
	sb.WriteString(context)
	sb.WriteString("\n\n")
	sb.WriteString(requirements)
	sb.WriteString("\n")
	return sb.String()
}
