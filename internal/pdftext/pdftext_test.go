package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanNormalizesLineEndings(t *testing.T) {
	assert.Equal(t, "one\ntwo", Clean("one\r\ntwo"))
}

func TestCleanCollapsesHorizontalWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Clean("a  \t b \t\t c"))
}

func TestCleanTrimsLines(t *testing.T) {
	assert.Equal(t, "first\nsecond", Clean("  first  \n\t second\t"))
}

func TestCleanCollapsesBlankRuns(t *testing.T) {
	assert.Equal(t, "para one\n\npara two", Clean("para one\n\n\n\n\npara two"))
}

func TestCleanPreservesSingleBlankLine(t *testing.T) {
	assert.Equal(t, "a\n\nb", Clean("a\n\nb"))
}

func TestCleanEmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("  \n\t \r\n "))
}

func TestExtractFileMissingFile(t *testing.T) {
	_, err := ExtractFile("testdata/does-not-exist.pdf")

	assert.Error(t, err)
}
