package logx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/herohde/shoginet/pkg/logx"
)

func TestCensor(t *testing.T) {
	logx.SetCensorKeyword("ABCD")
	defer logx.SetCensorKeyword("")

	tests := []struct {
		in, expected string
	}{
		{"ABCD", "****"},
		{"key=ABCD ok", "key=**** ok"},
		{"ABCDABCD", "********"},
		{"no secret here", "no secret here"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, logx.Censor(tt.in))
	}
}

func TestCensorDisabled(t *testing.T) {
	logx.SetCensorKeyword("")
	assert.Equal(t, "ABCD", logx.Censor("ABCD"))
}
