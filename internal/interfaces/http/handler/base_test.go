package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	pkgerrors "chaptercraft-api/pkg/errors"
)

func testGenConfig() *config.GenerationConfig {
	return &config.GenerationConfig{
		DefaultWordTargets: map[string]map[string]int{
			"long-narrative":         {"short": 15000, "medium": 40000, "long": 80000},
			"informational":          {"short": 5000, "medium": 15000, "long": 30000},
			"illustrated-short-form": {"short": 500, "medium": 1000, "long": 2000},
		},
	}
}

func TestResolveWordTargetExplicitWins(t *testing.T) {
	got, err := resolveWordTarget(testGenConfig(), entity.CategoryLongNarrative, 12345, "long")
	require.NoError(t, err)
	assert.Equal(t, 12345, got)
}

func TestResolveWordTargetNegativeRejected(t *testing.T) {
	_, err := resolveWordTarget(testGenConfig(), entity.CategoryInformational, -1, "")
	require.Error(t, err)

	appErr := pkgerrors.AsAppError(err)
	assert.Equal(t, pkgerrors.ErrInvalidParam.Code, appErr.Code)
	assert.Contains(t, appErr.Detail, "must be positive")
}

func TestResolveWordTargetDefaultsByLength(t *testing.T) {
	tests := []struct {
		category entity.ContentCategory
		length   string
		want     int
	}{
		{entity.CategoryLongNarrative, "short", 15000},
		{entity.CategoryLongNarrative, "", 40000},
		{entity.CategoryLongNarrative, "MEDIUM", 40000},
		{entity.CategoryInformational, "long", 30000},
		{entity.CategoryIllustratedShortForm, "short", 500},
		{entity.CategoryIllustratedShortForm, " long ", 2000},
	}

	for _, tt := range tests {
		got, err := resolveWordTarget(testGenConfig(), tt.category, 0, tt.length)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "category=%s length=%q", tt.category, tt.length)
	}
}

func TestResolveWordTargetUnknownLengthClass(t *testing.T) {
	_, err := resolveWordTarget(testGenConfig(), entity.CategoryInformational, 0, "epic")
	require.Error(t, err)
	assert.Contains(t, pkgerrors.AsAppError(err).Detail, "unknown length class")
}

func TestResolveWordTargetCategoryWithoutDefaults(t *testing.T) {
	cfg := &config.GenerationConfig{DefaultWordTargets: map[string]map[string]int{}}
	_, err := resolveWordTarget(cfg, entity.CategoryLongNarrative, 0, "")
	require.Error(t, err)
	assert.Contains(t, pkgerrors.AsAppError(err).Detail, "word_target required")
}
