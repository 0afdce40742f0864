package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"server.py", "Python"},
		{"app/Main.JS", "JavaScript"},
		{"pkg/store.go", "Go"},
		{"schema.sql", "SQL"},
		{"deploy.yml", "YAML"},
		{"README.md", "Markdown"},
		{"mystery", "Unknown"},
		{"archive.xyz", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.filename), tt.filename)
	}
}

func TestIsBinaryPath(t *testing.T) {
	assert.True(t, IsBinaryPath("assets/logo.png"))
	assert.True(t, IsBinaryPath("report.PDF"))
	assert.False(t, IsBinaryPath("main.go"))
	assert.False(t, IsBinaryPath("Makefile"))
}

func TestSkipRiskAssessment(t *testing.T) {
	assert.True(t, SkipRiskAssessment("data/fixtures.db"))
	assert.True(t, SkipRiskAssessment("bin/tool.exe"))
	assert.False(t, SkipRiskAssessment("tool.go"))
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, IsConfigFile("app/config.yaml"))
	assert.True(t, IsConfigFile("Dockerfile"))
	assert.True(t, IsConfigFile("package.json"))
	assert.False(t, IsConfigFile("handlers.go"))
}

func TestIsDocumentationFile(t *testing.T) {
	assert.True(t, IsDocumentationFile("README"))
	assert.True(t, IsDocumentationFile("notes.md"))
	assert.True(t, IsDocumentationFile("docs/guide.html"))
	assert.False(t, IsDocumentationFile("main.go"))
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("store_test.go"))
	assert.True(t, IsTestFile("tests/fixtures.py"))
	assert.True(t, IsTestFile("user.spec.ts"))
	assert.False(t, IsTestFile("main.go"))
}

func TestIsSourceCodeFile(t *testing.T) {
	assert.True(t, IsSourceCodeFile("internal/server.go"))
	assert.True(t, IsSourceCodeFile("app.py"))
	// Tests and config are carved out of the source bucket.
	assert.False(t, IsSourceCodeFile("server_test.go"))
	assert.False(t, IsSourceCodeFile("config.py"))
	assert.False(t, IsSourceCodeFile("README.md"))
}
