package main

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The --state flag accepts all, open, or closed; the help examples must
// not suggest anything else.
func TestIngestHelpStateExamples(t *testing.T) {
	valid := map[string]bool{"all": true, "open": true, "closed": true}

	re := regexp.MustCompile(`--state\s+(\S+)`)
	matches := re.FindAllStringSubmatch(ingestCmd.Long, -1)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.True(t, valid[m[1]], "help example uses unsupported state %q", m[1])
	}
}
