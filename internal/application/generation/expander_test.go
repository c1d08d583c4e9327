package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"chaptercraft-api/internal/domain/entity"
)

func TestExpandZeroDeficitReturnsBaseUnchanged(t *testing.T) {
	e := NewExpander()
	base := "Some existing chapter text."

	assert.Equal(t, base, e.Expand(base, "Topic", "Subject", entity.CategoryLongNarrative, 0))
	assert.Equal(t, base, e.Expand(base, "Topic", "Subject", entity.CategoryLongNarrative, -50))
}

func TestExpandCoversDeficit(t *testing.T) {
	e := NewExpander()

	for _, category := range []entity.ContentCategory{
		entity.CategoryLongNarrative,
		entity.CategoryInformational,
		entity.CategoryIllustratedShortForm,
	} {
		t.Run(string(category), func(t *testing.T) {
			base := textOfWords(100)
			out := e.Expand(base, "The Journey", "a test story", category, 500)

			added := CountWords(out) - 100
			assert.GreaterOrEqual(t, added, 500, "expansion must cover the full deficit")
			assert.True(t, strings.HasPrefix(out, base), "base content must be preserved")
		})
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	e := NewExpander()

	a := e.Expand("", "Revelation", "the lost city", entity.CategoryLongNarrative, 1200)
	b := e.Expand("", "Revelation", "the lost city", entity.CategoryLongNarrative, 1200)
	assert.Equal(t, a, b)
}

func TestExpandSubstitutesTopicAndSubject(t *testing.T) {
	e := NewExpander()

	out := e.Expand("", "Core Concepts", "distributed systems", entity.CategoryInformational, 100)
	assert.Contains(t, out, "Core Concepts")
	assert.Contains(t, out, "distributed systems")
	assert.NotContains(t, out, "%[1]s")
	assert.NotContains(t, out, "%[2]s")
}

func TestExpandFromEmptyBase(t *testing.T) {
	e := NewExpander()

	out := e.Expand("", "A Lesson Learned", "the little fox", entity.CategoryIllustratedShortForm, 2000)
	assert.GreaterOrEqual(t, CountWords(out), 2000)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t "))
	assert.Equal(t, 3, CountWords("one two three"))
	assert.Equal(t, 3, CountWords("  one\n two\tthree  "))
}

func TestTailWords(t *testing.T) {
	assert.Equal(t, "", TailWords("one two three", 0))
	assert.Equal(t, "three", TailWords("one two three", 1))
	assert.Equal(t, "two three", TailWords("one two three", 2))
	assert.Equal(t, "one two three", TailWords("one two three", 10))
}
