package blade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateExpression(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$name", "name"},
		{"  $user.name  ", "user?.name"},
		{"$user.name === $other", "user?.name === other"},
		{"$a.b.c", "a?.b.c"},
		{"$price * 1.5", "price * 1.5"},
		{"count($items) > 0 && !$done", "count(items) > 0 && !done"},
		{"'plain'", "'plain'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateExpression(tt.in))
		})
	}
}
