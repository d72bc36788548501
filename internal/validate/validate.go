// Package validate holds the input rules shared by the engine and the board directory.
// Each function returns the normalised value or an apperr validation error.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Joseda-hg/lazyboard/internal/apperr"
)

const TitleMax = 200

var (
	agentPattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,49}$`)
	columnIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	ulidPattern     = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
)

var (
	fields   = validator.New()
	titleTag = fmt.Sprintf("max=%d", TitleMax)
)

// Title trims title and checks it holds 1 to TitleMax characters.
func Title(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if err := fields.Var(trimmed, "required"); err != nil {
		return "", apperr.Validation("Title cannot be empty")
	}
	if err := fields.Var(trimmed, titleTag); err != nil {
		return "", apperr.Validation("Title exceeds maximum length of %d characters", TitleMax)
	}
	return trimmed, nil
}

func AgentName(name string) (string, error) {
	if !agentPattern.MatchString(name) {
		return "", apperr.Validation("Invalid agent name: '%s'. Must match: %s", name, agentPattern.String())
	}
	return name, nil
}

func ColumnID(id string) (string, error) {
	if !columnIDPattern.MatchString(id) {
		return "", apperr.Validation("Invalid column ID: '%s'. Must be lowercase alphanumeric with underscores", id)
	}
	return id, nil
}

func IsTaskID(id string) bool {
	return ulidPattern.MatchString(id)
}

func TaskID(id string) (string, error) {
	if !IsTaskID(id) {
		return "", apperr.Validation("Invalid task ID: '%s'", id)
	}
	return id, nil
}

// StringList drops blank entries and trims the rest, keeping order.
func StringList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
