// Package jira fetches issues from Jira Cloud and links branches back to
// them through the REST API v3.
package jira

// Issue holds the issue fields the workflow uses.
type Issue struct {
	Key     string
	Summary string
	// URL is the browse link for the key that was requested.
	URL string
	// Permalink is the browse link for the key Jira reports, which differs
	// from URL when the issue was moved to another project.
	Permalink string
	// Self is the REST resource link.
	Self string
	// Description is already converted from ADF to Markdown.
	Description string
	Type        string
	Status      string
}

// RemoteBranch is a forge branch to link from an issue.
type RemoteBranch struct {
	// Forge is the provider name, "github" or "gitlab".
	Forge string
	URL   string
	Name  string
}
