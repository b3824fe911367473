package profile

import (
	"strings"
	"testing"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile models.UserProfile
		want    string
	}{
		{
			name:    "empty profile renders negative selections",
			profile: models.UserProfile{},
			want:    "선택 항목: 자녀 없음, 반려동물 없음, 알러지 없음",
		},
		{
			name: "full profile",
			profile: models.UserProfile{
				Age:            ptr(34),
				Gender:         ptr("여성"),
				SpecificGoal:   ptr("아이 간식 찾기"),
				Interests:      map[string][]string{"신선식품": {"과일", "과일", "채소"}, "가공식품": {"밀키트"}},
				HasChildren:    ptr(true),
				ChildInterests: []string{"이유식"},
				HasPets:        ptr(true),
				HasAllergies:   ptr(true),
				Allergies:      ptr("땅콩"),
			},
			want: "나이: 34세 성별: 여성 구체적 목표: 아이 간식 찾기 관심사: 가공식품: 밀키트; 신선식품: 과일, 채소 " +
				"선택 항목: 자녀가 있어요, 자녀 관심사: 이유식, 반려동물이 있어요, 알러지가 있어요, 알러지 정보: 땅콩",
		},
		{
			name: "explicit false and blank values",
			profile: models.UserProfile{
				SpecificGoal: ptr("   "),
				HasChildren:  ptr(false),
				HasAllergies: ptr(true),
				Allergies:    ptr(""),
			},
			want: "선택 항목: 자녀 없음, 반려동물 없음, 알러지가 있어요",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Text(tt.profile); got != tt.want {
				t.Errorf("Text() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestText_Deterministic(t *testing.T) {
	t.Parallel()

	p := models.UserProfile{Interests: map[string][]string{"c": {"1"}, "a": {"2"}, "b": {"3"}}}
	first := Text(p)
	for i := 0; i < 20; i++ {
		if got := Text(p); got != first {
			t.Fatalf("Text not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.Contains(first, "관심사: a: 2; b: 3; c: 1") {
		t.Errorf("categories not sorted: %q", first)
	}
}

func TestSectorText(t *testing.T) {
	t.Parallel()

	p := models.UserProfile{
		Interests: map[string][]string{
			"신선식품":   {"과일", "해산물"},
			"베이커리":   {"케이크"},
			"음료":     {"와인"},
		},
	}

	bakery := SectorText(p, Sectors[2])
	if !strings.Contains(bakery, "케이크") || strings.Contains(bakery, "과일") {
		t.Errorf("bakery sector text = %q", bakery)
	}

	if got := SectorText(p, Sectors[4]); got != "" {
		t.Errorf("health sector should be empty, got %q", got)
	}
}

func TestSectors(t *testing.T) {
	t.Parallel()

	if len(Sectors) != 6 {
		t.Fatalf("len(Sectors) = %d, want 6", len(Sectors))
	}
}
