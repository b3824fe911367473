package recommend

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

const systemPrompt = "당신은 전시회 부스 추천 전문가입니다. 요청한 JSON 형식으로만 답변합니다."

// catalogEntry is the booth shape shown to the model in the full-catalog prompt.
type catalogEntry struct {
	ID                  string  `json:"id"`
	CompanyNameKor      string  `json:"company_name_kor"`
	Category            *string `json:"category,omitempty"`
	CompanyDescription  string  `json:"company_description,omitempty"`
	Products            string  `json:"products,omitempty"`
	ProductsDescription string  `json:"products_description,omitempty"`
}

func fallbackPrompt(profileText string, booths []models.Booth) (string, error) {
	entries := make([]catalogEntry, len(booths))
	for i, b := range booths {
		entries[i] = catalogEntry{
			ID:                  b.ID,
			CompanyNameKor:      b.CompanyNameKor,
			Category:            b.Category,
			CompanyDescription:  b.CompanyDescription,
			Products:            b.Products,
			ProductsDescription: b.ProductsDescription,
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode booth catalog: %w", err)
	}

	return fmt.Sprintf(`
전시회 참관객 정보가 주어지면, 전체 중에서 가장 적합성이 높은 부스 %[1]d개를 rationale과 함께 등수가 높은 것부터 낮은 순으로 알려주세요.

참관객 정보: %[2]s

부스 데이터:
%[3]s

응답은 반드시 다음 JSON 형식으로만 제공해주세요:
[{"id": "B2404", "rationale": "이 부스가 적합한 이유를 상세히 설명"}, {"id": "A2101", "rationale": "이 부스가 적합한 이유를 상세히 설명"}, ...]

중요:
1. 반드시 %[1]d개의 부스를 추천해주세요.
2. id는 부스 데이터의 id 필드 값을 사용하세요.
3. 해당 부스가 왜 적합한지 참관객에게 전달할 이유를 rationale에 자연스럽게 작성하세요.
4. 등수가 높은 것부터 낮은 순으로 정렬해주세요.
5. 응답은 오직 JSON 배열 형태로만 제공하고 다른 텍스트는 포함하지 마세요.
6. 중복된 부스(id)가 절대 포함되지 않도록 주의하세요. %[1]d개의 id는 모두 달라야 합니다.
7. 다른 부스의 내용을 언급하지 마세요.
`, MaxRecommendations, profileText, data), nil
}

func ragPrompt(profileText string, pool []models.BoothSearchResult) string {
	var candidates strings.Builder
	for i, b := range pool {
		fmt.Fprintf(&candidates, "%d. [ID: %s] %s\n", i+1, b.ID, b.CompanyNameKor)
		fmt.Fprintf(&candidates, "   - 카테고리: %s\n", orNA(b.CategoryName()))
		fmt.Fprintf(&candidates, "   - 제품: %s\n", orNA(b.Products))
		fmt.Fprintf(&candidates, "   - 설명: %s\n\n", orNA(b.CompanyDescription))
	}

	return fmt.Sprintf(`
당신은 전시회 부스 추천 전문가입니다. 벡터 검색으로 선별된 후보 부스들 중에서 사용자에게 가장 적합한 %[1]d개를 선택하고 각각의 추천 이유를 생성해주세요.

사용자 프로필: %[2]s

후보 부스들 (유사도 순):
%[3]s
위 후보 부스들 중에서 사용자에게 가장 적합한 %[1]d개를 선택하여 추천해주세요.

응답은 반드시 다음 JSON 형식으로만 제공해주세요:
[{"id": "B2404", "rationale": "이 부스가 적합한 이유를 상세히 설명"}, {"id": "A2101", "rationale": "이 부스가 적합한 이유를 상세히 설명"}, ...]

중요:
1. 반드시 %[1]d개의 부스를 선택해주세요. 후보가 %[1]d개보다 적으면 후보 전체를 순위대로 정렬하세요.
2. id는 반드시 위 후보 목록의 ID만 사용하고, 같은 id를 두 번 쓰지 마세요.
3. 각 부스에 대해 구체적이고 설득력 있는 추천 이유를 rationale에 작성해주세요.
4. 유사도 점수를 참고하되, 사용자의 세부적인 관심사와 부스의 특성을 더 중요하게 고려하세요.
5. 가장 적합한 부스부터 순서대로 정렬해주세요.
6. 응답은 오직 JSON 배열 형태로만 제공하고 다른 텍스트는 포함하지 마세요.
7. 다른 부스의 내용을 언급하지 마세요.
`, MaxRecommendations, profileText, candidates.String())
}

func followUpPrompt(profileText string) string {
	return fmt.Sprintf(`
당신은 전시회 부스 추천 전문가입니다. 아래 참관객의 정보를 분석하여:
1. 참관객의 관심사를 3-4문장으로 요약해주세요
2. 더욱 정교한 부스 추천을 위해 참관객에게 추가로 물어봐야 할 질문 %[1]d개를 생성해주세요

참관객 정보:
%[2]s

응답은 반드시 다음 JSON 형식으로만 제공해주세요:
{
  "summary": "참관객의 관심사에 대한 요약 (3-4문장)",
  "questions": [
    "추가 질문 1 (구체적이고 답변이 추천에 도움이 되는 질문)",
    "추가 질문 2",
    "추가 질문 3",
    "추가 질문 4"
  ]
}

중요:
1. summary는 참관객의 주요 관심사와 선호도를 명확하게 요약해주세요
2. questions는 참관객의 구체적인 선호도, 목적, 우선순위 등을 파악할 수 있는 질문이어야 합니다
3. 질문은 개방형이어야 하며, 참관객이 자유롭게 답변할 수 있어야 합니다
4. 응답은 오직 JSON 형태로만 제공하고 다른 텍스트는 포함하지 마세요
`, FollowUpQuestionCount, profileText)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
