package db

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{in: "plain words", out: "plain words"},
		{in: "snake_case_name", out: `snake\_case\_name`},
		{in: "100%", out: `100\%`},
		{in: "_mixed% _bag%", out: `\_mixed\% \_bag\%`},
		{in: `c:\temp_%`, out: `c:\\temp\_\%`},
	}
	for _, tt := range tests {
		assert.Equal(t, EscapeLike(tt.in), tt.out)
	}
}
