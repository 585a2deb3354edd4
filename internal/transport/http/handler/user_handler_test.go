package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	cases := map[string]int{
		"":    1,
		"1":   1,
		"3":   3,
		"0":   1,
		"-2":  1,
		"abc": 1,
		"2.5": 1,
	}
	for in, want := range cases {
		assert.Equal(t, want, parsePage(in), "page=%q", in)
	}
}
