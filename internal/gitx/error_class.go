// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors callers can wrap to force a classification without
// relying on stderr sniffing.
var (
	ErrAuthFailure      = errors.New("git auth error")
	ErrNetworkFailure   = errors.New("git network error")
	ErrCorruptRepo      = errors.New("git corrupt repository")
	ErrMissingRemoteRef = errors.New("git missing remote")
)

// classRule ties a category to the sentinel and the stderr phrases that
// select it. Rules run in order, so the auth phrases beat the broader
// network ones.
type classRule struct {
	class    string
	sentinel error
	phrases  []string
}

var classRules = []classRule{
	{class: "auth", sentinel: ErrAuthFailure, phrases: []string{
		"authentication failed", "permission denied", "access denied",
		"publickey", "could not read username", "invalid credentials",
	}},
	{class: "network", sentinel: ErrNetworkFailure, phrases: []string{
		"could not resolve host", "connection refused", "network is unreachable",
		"connection timed out", "failed to connect", "unable to access",
		"remote hung up",
	}},
	{class: "timeout", phrases: []string{
		"timeout", "timed out", "deadline exceeded",
	}},
	{class: "not_a_repo", phrases: []string{
		"not a git repository",
	}},
	{class: "corrupt", sentinel: ErrCorruptRepo, phrases: []string{
		"bad object", "object file", "loose object", "corrupt",
	}},
	{class: "missing_remote", sentinel: ErrMissingRemoteRef, phrases: []string{
		"repository not found", "no remote repository", "no such remote",
		"couldn't find remote ref",
	}},
}

// ClassifyError maps git/process errors into broad actionable categories.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	for _, rule := range classRules {
		if rule.sentinel != nil && errors.Is(err, rule.sentinel) {
			return rule.class
		}
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range classRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(msg, phrase) {
				return rule.class
			}
		}
	}
	return "unknown"
}
