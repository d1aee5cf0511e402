package gitx

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces a git remote URL to a host/path identity so the
// same repository matches whether it was cloned over SSH or HTTPS.
//
// The protocol and user info are dropped, the host is lowercased, and a
// trailing ".git" or "/" is stripped:
//
//	git@github.com:Org/Repo.git     → github.com/Org/Repo
//	https://github.com/Org/Repo.git → github.com/Org/Repo
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	host, path, ok := splitSCPRemote(raw)
	if !ok {
		parsed, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		host = parsed.Hostname()
		path = strings.TrimPrefix(parsed.Path, "/")
	}
	host = strings.ToLower(host)
	path = strings.TrimRight(strings.TrimSuffix(path, ".git"), "/")
	if host == "" {
		return path
	}
	return host + "/" + path
}

// splitSCPRemote recognizes user@host:path remotes, which url.Parse
// would misread since they carry no scheme.
func splitSCPRemote(raw string) (host, path string, ok bool) {
	at := strings.Index(raw, "@")
	if at < 0 || strings.Contains(raw[:at], "://") {
		return "", "", false
	}
	host, path, found := strings.Cut(raw[at+1:], ":")
	if !found {
		return "", "", true
	}
	return host, path, true
}

// PrimaryRemote picks which remote to inspect: origin when present,
// otherwise the alphabetically first name.
func PrimaryRemote(names []string) string {
	if len(names) == 0 {
		return ""
	}
	best := ""
	for _, name := range names {
		if name == "origin" {
			return name
		}
		if best == "" || name < best {
			best = name
		}
	}
	return best
}
