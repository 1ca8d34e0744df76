// Package github provides a minimal GitHub REST API client for reviewing
// pull requests: fetching a PR's unified diff, posting findings as inline
// review comments, and maintaining a single summary comment per PR.
//
// The summary comment carries a hidden HTML marker so repeated runs update
// the existing comment instead of posting a new one on every push. The
// client reads GITHUB_TOKEN from the environment and detects owner/repo
// from the local git remote when the PR reference does not name them.
package github
