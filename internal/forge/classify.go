package forge

import (
	"path"
	"strings"
)

var languageByExtension = map[string]string{
	".py": "Python", ".js": "JavaScript", ".ts": "TypeScript", ".java": "Java",
	".cpp": "C++", ".c": "C", ".cs": "C#", ".php": "PHP", ".rb": "Ruby",
	".go": "Go", ".rs": "Rust", ".swift": "Swift", ".kt": "Kotlin",
	".scala": "Scala", ".clj": "Clojure", ".hs": "Haskell", ".ml": "OCaml",
	".html": "HTML", ".css": "CSS", ".scss": "SCSS", ".sass": "Sass",
	".sql": "SQL", ".r": "R", ".m": "MATLAB", ".sh": "Shell",
	".yaml": "YAML", ".yml": "YAML", ".json": "JSON", ".xml": "XML",
	".md": "Markdown", ".txt": "Text", ".rst": "reStructuredText",
	".dockerfile": "Dockerfile", ".dockerignore": "Docker",
	".gitignore": "Git", ".gitattributes": "Git",
}

var binaryExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".dat": true, ".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".7z": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".ico": true, ".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true, ".mp3": true,
	".mp4": true, ".avi": true, ".mov": true,
}

// riskSkipExtensions never get an LLM risk assessment; they receive a zero
// score with an explanatory reason.
var riskSkipExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true,
}

var configPatterns = []string{
	"config", "conf", "ini", "cfg", "properties", "env",
	"dockerfile", "docker-compose", "package.json", "requirements.txt",
	"pom.xml", "build.gradle", "cargo.toml", "go.mod", "composer.json",
}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".pdf": true, ".doc": true, ".docx": true,
}

var docPatterns = []string{"readme", "license", "changelog", "contributing", "docs/", "documentation/"}

var testPatterns = []string{"test", "spec", "specs", "test_", "_test", "tests/", "specs/"}

var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true, ".cpp": true,
	".c": true, ".cs": true, ".php": true, ".rb": true, ".go": true,
	".rs": true, ".swift": true, ".kt": true, ".scala": true, ".clj": true,
	".hs": true, ".ml": true, ".html": true, ".css": true, ".scss": true,
	".sql": true, ".r": true, ".sh": true,
}

// Extension returns the lowercase extension including the dot, or "".
func Extension(filename string) string {
	ext := path.Ext(filename)
	return strings.ToLower(ext)
}

// DetectLanguage maps a filename to its language, "Unknown" when unmapped.
func DetectLanguage(filename string) string {
	if lang, ok := languageByExtension[Extension(filename)]; ok {
		return lang
	}
	return "Unknown"
}

// IsBinaryPath reports whether the file should be treated as binary by
// extension. Binary files are never fetched for content.
func IsBinaryPath(filename string) bool {
	return binaryExtensions[Extension(filename)]
}

// SkipRiskAssessment reports whether the extension is on the risk-scoring
// skip list.
func SkipRiskAssessment(filename string) bool {
	return riskSkipExtensions[Extension(filename)]
}

// IsConfigFile reports whether the filename looks like configuration.
func IsConfigFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, pattern := range configPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsDocumentationFile reports whether the filename looks like documentation.
func IsDocumentationFile(filename string) bool {
	if docExtensions[Extension(filename)] {
		return true
	}
	lower := strings.ToLower(filename)
	for _, pattern := range docPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsTestFile reports whether the filename looks like a test.
func IsTestFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, pattern := range testPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsSourceCodeFile reports whether the filename is source code that is
// neither a test nor configuration.
func IsSourceCodeFile(filename string) bool {
	return sourceExtensions[Extension(filename)] && !IsTestFile(filename) && !IsConfigFile(filename)
}
