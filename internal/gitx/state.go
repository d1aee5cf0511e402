// SPDX-License-Identifier: MIT
package gitx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GitDir resolves the metadata directory for the repository at dir. A .git
// regular file containing a "gitdir:" pointer (worktrees, submodules) is
// followed; relative pointers resolve against dir.
func GitDir(dir string) (string, error) {
	p := filepath.Join(dir, ".git")
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return p, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	const prefix = "gitdir:"
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("unrecognized .git file at %s", p)
	}
	target := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if target == "" {
		return "", fmt.Errorf("empty gitdir pointer in %s", p)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return filepath.Clean(target), nil
}

// OperationInProgress reports the multi-step git operation underway in the
// repository at dir, if any. Merge, rebase, cherry-pick, revert and bisect
// each leave a marker in the git dir until concluded or aborted.
func OperationInProgress(dir string) (string, bool) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return "", false
	}
	markers := []struct{ file, op string }{
		{"MERGE_HEAD", "merge"},
		{"REBASE_HEAD", "rebase"},
		{"CHERRY_PICK_HEAD", "cherry-pick"},
		{"REVERT_HEAD", "revert"},
		{"BISECT_LOG", "bisect"},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(gitDir, m.file)); err == nil {
			return m.op, true
		}
	}
	for _, sub := range []string{"rebase-merge", "rebase-apply"} {
		if info, err := os.Stat(filepath.Join(gitDir, sub)); err == nil && info.IsDir() {
			return "rebase", true
		}
	}
	return "", false
}
