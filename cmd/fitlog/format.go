// ABOUTME: Shared CLI helpers for table output, day flags, and confirmation prompts.
// ABOUTME: Prompts read from stdin, which tests replace.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

var stdin io.Reader = os.Stdin

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// formatOptional prints a nil value as a dash.
func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// parseDayFlag parses an optional YYYY-MM-DD flag value.
func parseDayFlag(name, value string) (*models.Day, error) {
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %s (use YYYY-MM-DD)", name, value)
	}
	return &d, nil
}

// confirm asks a yes/no question and defaults to no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	reader := bufio.NewReader(stdin)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
