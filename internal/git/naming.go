package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxBranchNameLength is the default cap for generated branch names.
	MaxBranchNameLength = 255

	// maxSummaryLength caps the sanitized summary before composition.
	maxSummaryLength = 100

	// timestampLayout renders a second-resolution, 14 digit suffix.
	timestampLayout = "20060102150405"
)

// ErrInvalidBranchName indicates a branch name failed validation.
var ErrInvalidBranchName = errors.New("invalid branch name")

var (
	unsafeBranchChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns        = regexp.MustCompile(`-{2,}`)
	branchNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9/_.-]*$`)
)

// Sanitize turns free text into a ref-safe slug: lowercase, every
// character outside [a-z0-9-] becomes a hyphen, hyphen runs collapse and
// leading/trailing hyphens are trimmed. The result is at most 100 chars
// and may be empty.
func Sanitize(summary string) string {
	s := strings.ToLower(summary)
	s = unsafeBranchChars.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSummaryLength {
		s = strings.TrimRight(s[:maxSummaryLength], "-")
	}
	return s
}

// GenerateBranchName derives the work branch for an issue:
//
//	[{type}/]{key}-{sanitized summary}-{YYYYMMDDhhmmss}
//
// When the result would exceed maxLength, the part before the timestamp
// is cut by exactly the overflow so the timestamp always survives intact.
// A non-positive maxLength selects MaxBranchNameLength.
func GenerateBranchName(issueKey, summary, issueType string, maxLength int, now time.Time) string {
	if maxLength <= 0 {
		maxLength = MaxBranchNameLength
	}

	composed := issueKey
	if slug := Sanitize(summary); slug != "" {
		composed += "-" + slug
	}
	if issueType != "" {
		composed = strings.ToLower(issueType) + "/" + composed
	}

	suffix := "-" + now.Format(timestampLayout)
	if overflow := len(composed) + len(suffix) - maxLength; overflow > 0 {
		keep := len(composed) - overflow
		if keep < 0 {
			keep = 0
		}
		composed = composed[:keep]
	}
	return composed + suffix
}

// ValidateBranchName checks a user supplied branch name (such as a base
// branch override) for git compatibility and shell safety.
func ValidateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: cannot be empty", ErrInvalidBranchName)
	case len(name) > MaxBranchNameLength:
		return fmt.Errorf("%w: exceeds maximum length of %d characters", ErrInvalidBranchName, MaxBranchNameLength)
	case strings.EqualFold(name, "head") || name == "@":
		return fmt.Errorf("%w: '%s' is a reserved name", ErrInvalidBranchName, name)
	case strings.Contains(name, "@{"):
		return fmt.Errorf("%w: cannot contain '@{'", ErrInvalidBranchName)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: cannot contain '..'", ErrInvalidBranchName)
	case strings.HasSuffix(name, ".lock"), strings.HasSuffix(name, "."), strings.HasSuffix(name, "/"):
		return fmt.Errorf("%w: cannot end with '.lock', '.' or '/'", ErrInvalidBranchName)
	case strings.Contains(name, "//"), strings.Contains(name, "/."):
		return fmt.Errorf("%w: malformed path component", ErrInvalidBranchName)
	case !branchNamePattern.MatchString(name):
		return fmt.Errorf("%w: contains invalid characters (allowed: a-z, A-Z, 0-9, /, -, _, .)", ErrInvalidBranchName)
	}
	return nil
}
