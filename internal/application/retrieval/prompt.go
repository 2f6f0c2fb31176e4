package retrieval

import (
	"strconv"
	"strings"
)

// FormatReferences 将参考文本格式化为可直接注入 Prompt 的块。
// 约束：尽量短，单条压缩为一行并按 rune 截断。
func FormatReferences(refs []string, maxRunesPerRef int) string {
	if len(refs) == 0 {
		return ""
	}
	if maxRunesPerRef <= 0 {
		maxRunesPerRef = 800
	}

	lines := make([]string, 0, len(refs))
	n := 0
	for _, ref := range refs {
		txt := truncateRunes(compactOneLine(ref), maxRunesPerRef)
		if txt == "" {
			continue
		}
		n++
		lines = append(lines, "["+strconv.Itoa(n)+"] "+txt)
	}
	return strings.Join(lines, "\n")
}

func compactOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
