// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"chaptercraft-api/internal/config"
	"chaptercraft-api/internal/domain/entity"
	pkgerrors "chaptercraft-api/pkg/errors"
)

// bindJobID 从路径参数读取任务 ID
func bindJobID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("jid"))
}

// defaultLengthClass 未指定篇幅档位时的默认值
const defaultLengthClass = "medium"

// resolveWordTarget 解析目标字数：显式值优先，否则按品类与篇幅档位取默认
func resolveWordTarget(cfg *config.GenerationConfig, category entity.ContentCategory, explicit int, length string) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if explicit < 0 {
		return 0, pkgerrors.ErrInvalidParam.WithDetail("word_target must be positive")
	}

	class := strings.ToLower(strings.TrimSpace(length))
	if class == "" {
		class = defaultLengthClass
	}

	targets, ok := cfg.DefaultWordTargets[string(category)]
	if !ok {
		return 0, pkgerrors.ErrInvalidParam.WithDetail("word_target required: no defaults for category " + string(category))
	}
	target, ok := targets[class]
	if !ok || target <= 0 {
		return 0, pkgerrors.ErrInvalidParam.WithDetail("unknown length class: " + class)
	}
	return target, nil
}
