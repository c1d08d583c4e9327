package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHAPTERCRAFT_TEST_HOST", "db.internal")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "变量已设置时取环境变量",
			input: "host: ${CHAPTERCRAFT_TEST_HOST:localhost}",
			want:  "host: db.internal",
		},
		{
			name:  "变量未设置时使用默认值",
			input: "port: ${CHAPTERCRAFT_TEST_PORT:5432}",
			want:  "port: 5432",
		},
		{
			name:  "空默认值替换为空字符串",
			input: "password: ${CHAPTERCRAFT_TEST_PASSWORD:}",
			want:  "password: ",
		},
		{
			name:  "无默认值且变量未设置时原样保留",
			input: "key: ${CHAPTERCRAFT_TEST_MISSING}",
			want:  "key: ${CHAPTERCRAFT_TEST_MISSING}",
		},
		{
			name:  "非占位符文本不受影响",
			input: "name: chaptercraft-api",
			want:  "name: chaptercraft-api",
		},
		{
			name:  "同一行多个占位符",
			input: "${CHAPTERCRAFT_TEST_HOST:a}:${CHAPTERCRAFT_TEST_PORT:6379}",
			want:  "db.internal:6379",
		},
		{
			name:  "默认值可包含冒号",
			input: "url: ${CHAPTERCRAFT_TEST_URL:https://api.example.com/v1}",
			want:  "url: https://api.example.com/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.input))
		})
	}
}

func TestExpandEnvSetVariableIgnoresDefault(t *testing.T) {
	t.Setenv("CHAPTERCRAFT_TEST_LEVEL", "debug")
	assert.Equal(t, "level: debug", expandEnv("level: ${CHAPTERCRAFT_TEST_LEVEL:info}"))
}
