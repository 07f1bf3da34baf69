package agent

import (
	"fmt"
	"os"
	"strings"
)

// FilePathPlaceholder is replaced in prompt templates with the path of the
// dropped file being processed.
const FilePathPlaceholder = "[[FILE_PATH]]"

// BuildPrompt loads a reusable prompt template and substitutes the file
// path placeholder.
func BuildPrompt(promptPath, filePath string) (string, error) {
	info, err := os.Stat(promptPath)
	if err != nil {
		return "", fmt.Errorf("reusable prompt file not found: %s: %w", promptPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("reusable prompt path is not a file: %s", promptPath)
	}

	content, err := os.ReadFile(promptPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", promptPath, err)
	}

	return strings.ReplaceAll(string(content), FilePathPlaceholder, filePath), nil
}
