package jira

import (
	"net/url"
	"regexp"
	"strings"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[0-9]+$`)

// ParseIssueInput accepts an issue key ("ABC-7") or an issue URL, either
// a browse link (".../browse/ABC-7") or a board link carrying
// selectedIssue=ABC-7, and returns the key.
func ParseIssueInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if keyPattern.MatchString(input) {
		return input, nil
	}
	if upper := strings.ToUpper(input); keyPattern.MatchString(upper) {
		return upper, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", t2perrors.ErrInvalidIssueInput(input)
	}
	if key := u.Query().Get("selectedIssue"); keyPattern.MatchString(key) {
		return key, nil
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "browse" && i+1 < len(segments) && keyPattern.MatchString(segments[i+1]) {
			return segments[i+1], nil
		}
	}
	return "", t2perrors.ErrInvalidIssueInput(input)
}
