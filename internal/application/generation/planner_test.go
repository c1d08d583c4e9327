package generation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/domain/entity"
)

func TestPlanChapterTargetsSumToWordTarget(t *testing.T) {
	p := NewPlanner(testGenConfig())

	cases := []struct {
		category entity.ContentCategory
		target   int
	}{
		{entity.CategoryLongNarrative, 15000},
		{entity.CategoryLongNarrative, 40000},
		{entity.CategoryLongNarrative, 80001},
		{entity.CategoryInformational, 5000},
		{entity.CategoryInformational, 29999},
		{entity.CategoryIllustratedShortForm, 500},
		{entity.CategoryIllustratedShortForm, 2000},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%d", tc.category, tc.target), func(t *testing.T) {
			plans := p.Plan(tc.category, tc.target)
			require.NotEmpty(t, plans)

			sum := 0
			for i, plan := range plans {
				assert.Equal(t, i+1, plan.Index, "chapter indices must be contiguous from 1")
				assert.Positive(t, plan.TargetWords)
				assert.NotEmpty(t, plan.Title)
				sum += plan.TargetWords
			}
			assert.Equal(t, tc.target, sum, "chapter targets must sum to the word target")
		})
	}
}

func TestPlanClampsChapterCount(t *testing.T) {
	p := NewPlanner(testGenConfig())

	// 200000/3000 = 66 章，应被钳制到上限 25
	plans := p.Plan(entity.CategoryLongNarrative, 200000)
	assert.Len(t, plans, 25)

	// 小于标称单章字数时至少一章
	plans = p.Plan(entity.CategoryIllustratedShortForm, 300)
	require.Len(t, plans, 1)
	assert.Equal(t, 300, plans[0].TargetWords)
}

func TestPlanLastChapterAbsorbsRemainder(t *testing.T) {
	p := NewPlanner(testGenConfig())

	// 7000/2500 = 2 章，7000/2 = 3500 每章，无余数
	plans := p.Plan(entity.CategoryInformational, 7000)
	require.Len(t, plans, 2)
	assert.Equal(t, 3500, plans[0].TargetWords)
	assert.Equal(t, 3500, plans[1].TargetWords)

	// 10001/2500 = 4 章，每章 2500，末章 2501
	plans = p.Plan(entity.CategoryInformational, 10001)
	require.Len(t, plans, 4)
	assert.Equal(t, 2500, plans[0].TargetWords)
	assert.Equal(t, 2501, plans[3].TargetWords)
}

func TestPlanTitlesCycleWithPartSuffix(t *testing.T) {
	p := NewPlanner(testGenConfig())

	// 25 章叙事：主题列表共 10 个，第 11 章起进入第二轮
	plans := p.Plan(entity.CategoryLongNarrative, 75000)
	require.Len(t, plans, 25)

	assert.Equal(t, "Origins", plans[0].Title)
	assert.Equal(t, "Resolution", plans[9].Title)
	assert.Equal(t, "Origins (Part 2)", plans[10].Title)
	assert.Equal(t, "Origins (Part 3)", plans[20].Title)
}

func TestPlanRejectsNonPositiveTarget(t *testing.T) {
	p := NewPlanner(testGenConfig())

	assert.Nil(t, p.Plan(entity.CategoryLongNarrative, 0))
	assert.Nil(t, p.Plan(entity.CategoryLongNarrative, -100))
}
