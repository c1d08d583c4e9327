// Package generation 实现目标字数文档装配引擎
package generation

import "strings"

// CountWords 按空白切分统计词数
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// TailWords 取文本尾部最多 n 个词，用于向下一章传递前文语境
func TailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[len(fields)-n:], " ")
}
