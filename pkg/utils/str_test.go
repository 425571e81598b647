package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitByMultipleDelimiters(t *testing.T) {
	delimiters := []string{",", ";"}

	assert.Equal(t, []string{"a", "b", "c"}, SplitByMultipleDelimiters("a,b;c", delimiters...))
	assert.Equal(t, []string{"a", "b=c"}, SplitByMultipleDelimiters("a,b=c", delimiters...))
	assert.Equal(t, []string{"a"}, SplitByMultipleDelimiters("a", delimiters...))
	assert.Equal(t, []string{"a,b"}, SplitByMultipleDelimiters("a,b"))
	assert.Equal(t, []string{"127.0.0.1:6379", "127.0.0.1:6380"},
		SplitByMultipleDelimiters(" 127.0.0.1:6379 ;; 127.0.0.1:6380, ", delimiters...))
	assert.Empty(t, SplitByMultipleDelimiters("", delimiters...))
}
