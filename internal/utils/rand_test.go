package utils

import (
	"strings"
	"testing"
)

func TestRandStringBytesMaskImpr(t *testing.T) {
	s := RandStringBytesMaskImpr(8)
	if len(s) != 8 {
		t.Fatalf("Expected length 8, got %d", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(letterBytes, r) {
			t.Errorf("Unexpected character %q in id", r)
		}
	}

	// 连续生成不应该撞车（8 位 62 进制空间足够大）
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := RandStringBytesMaskImpr(8)
		if seen[id] {
			t.Fatalf("Duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
