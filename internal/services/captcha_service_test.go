package services

import (
	"fmt"
	"testing"
)

func TestGenerateMathProblem(t *testing.T) {
	s := NewCaptchaService()

	for i := 0; i < 50; i++ {
		question, answer := s.GenerateMathProblem()

		var a, b int
		var op string
		if _, err := fmt.Sscanf(question, "%d %s %d", &a, &op, &b); err != nil {
			t.Fatalf("Unparseable question %q: %v", question, err)
		}

		expected := a + b
		if op == "-" {
			expected = a - b
		}
		if answer != expected {
			t.Errorf("Question %q: expected answer %d, got %d", question, expected, answer)
		}
		if answer < 0 {
			t.Errorf("Question %q: negative answer %d", question, answer)
		}
	}
}
