// Package profile renders a user's preference form as the natural-language text
// that is embedded for retrieval and handed to the LLM.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// Sector is one of the six fixed product groupings of the event.
type Sector struct {
	Name     string
	Keywords []string
}

// Sectors lists the event's product sectors in display order.
var Sectors = []Sector{
	{Name: "신선식품", Keywords: []string{"과일", "채소", "쌀/잡곡", "견과류", "소", "돼지", "닭", "해산물", "수산가공품"}},
	{Name: "가공식품", Keywords: []string{"냉동/냉장식품", "밀키트", "도시락", "레토르트", "통조림", "인스턴트", "면류", "장류/소스"}},
	{Name: "베이커리 & 디저트", Keywords: []string{"식빵", "페이스트리", "베이글", "제과제빵 재료", "케이크", "아이스크림", "푸딩", "젤리", "초콜릿", "과자", "쿠키"}},
	{Name: "유제품 & 음료 & 주류", Keywords: []string{"우유", "치즈", "요거트", "버터", "크림", "원두", "인스턴트 커피", "차", "주스", "탄산음료", "기능성 음료", "맥주", "와인", "전통주", "위스키"}},
	{Name: "건강 & 웰빙", Keywords: []string{"비타민", "영양제", "프로틴", "건강즙", "홍삼", "고령친화식품", "영양보충식", "저작용이식품", "유기농 인증", "친환경 인증"}},
	{Name: "식이 스타일", Keywords: []string{"매운맛", "짠맛", "단맛", "신맛", "담백한맛", "감칠맛", "구이/로스팅", "찜/삶기", "튀김", "조림", "채식/비건", "저탄수", "저염식", "저당식", "고단백"}},
}

// Text renders the whole profile. Parts appear in a fixed order and are joined by a
// single space: age, gender, specific goal, interests grouped by category, and the
// children/pets/allergies selections. Follow-up questions and answers are never included.
func Text(p models.UserProfile) string {
	return render(p, func(string) bool { return true })
}

// SectorText renders the profile keeping only interest items related to sector.
// It returns "" when the profile has no interest in that sector.
func SectorText(p models.UserProfile, sector Sector) string {
	match := func(item string) bool {
		for _, kw := range sector.Keywords {
			if strings.Contains(item, kw) || strings.Contains(kw, item) {
				return true
			}
		}
		return false
	}
	if interestsText(p.Interests, match) == "" {
		return ""
	}
	return render(p, match)
}

func render(p models.UserProfile, keep func(string) bool) string {
	var parts []string

	if p.Age != nil {
		parts = append(parts, fmt.Sprintf("나이: %d세", *p.Age))
	}
	if p.Gender != nil && strings.TrimSpace(*p.Gender) != "" {
		parts = append(parts, "성별: "+strings.TrimSpace(*p.Gender))
	}
	if p.SpecificGoal != nil && strings.TrimSpace(*p.SpecificGoal) != "" {
		parts = append(parts, "구체적 목표: "+strings.TrimSpace(*p.SpecificGoal))
	}
	if interests := interestsText(p.Interests, keep); interests != "" {
		parts = append(parts, "관심사: "+interests)
	}
	parts = append(parts, "선택 항목: "+strings.Join(selections(p), ", "))

	return strings.Join(parts, " ")
}

// interestsText renders "category: a, b; category2: c". Categories are sorted so the
// text, and therefore its embedding cache key, is stable. Items are deduplicated.
func interestsText(interests map[string][]string, keep func(string) bool) string {
	if len(interests) == 0 {
		return ""
	}
	categories := make([]string, 0, len(interests))
	for c := range interests {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var groups []string
	for _, c := range categories {
		items := dedupe(interests[c], keep)
		if len(items) == 0 {
			continue
		}
		groups = append(groups, c+": "+strings.Join(items, ", "))
	}
	return strings.Join(groups, "; ")
}

func dedupe(items []string, keep func(string) bool) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] || !keep(item) {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// selections renders the three tri-state blocks. Anything but an explicit "yes" is rendered as "no".
func selections(p models.UserProfile) []string {
	var items []string

	if isTrue(p.HasChildren) {
		items = append(items, "자녀가 있어요")
		if len(p.ChildInterests) > 0 {
			items = append(items, "자녀 관심사: "+strings.Join(p.ChildInterests, ", "))
		}
	} else {
		items = append(items, "자녀 없음")
	}

	if isTrue(p.HasPets) {
		items = append(items, "반려동물이 있어요")
		if len(p.PetTypes) > 0 {
			items = append(items, "반려동물 종류: "+strings.Join(p.PetTypes, ", "))
		}
	} else {
		items = append(items, "반려동물 없음")
	}

	if isTrue(p.HasAllergies) {
		items = append(items, "알러지가 있어요")
		if p.Allergies != nil && strings.TrimSpace(*p.Allergies) != "" {
			items = append(items, "알러지 정보: "+strings.TrimSpace(*p.Allergies))
		}
	} else {
		items = append(items, "알러지 없음")
	}

	return items
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
