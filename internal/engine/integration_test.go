//go:build integration

package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lantern/internal/engine"
	"github.com/skaphos/lantern/internal/model"
)

var _ = Describe("Engine integration", func() {
	It("reports a clean clone with zero divergence", func() {
		base := GinkgoT().TempDir()
		remote := filepath.Join(base, "remote.git")
		root := filepath.Join(base, "root")
		work := filepath.Join(root, "work")

		Expect(os.MkdirAll(root, 0o755)).To(Succeed())
		runGit("", "init", "--bare", remote)
		runGit("", "clone", remote, work)
		runGit(work, "config", "user.email", "test@example.com")
		runGit(work, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(work, "file.txt"), "initial\n")
		runGit(work, "add", "file.txt")
		runGit(work, "commit", "-m", "init")
		runGit(work, "branch", "-M", "main")
		runGit(work, "push", "-u", "origin", "main")

		records, err := engine.New(nil).Scan(context.Background(), engine.ScanOptions{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))

		rec := records[0]
		Expect(rec.Name).To(Equal("work"))
		Expect(rec.Branch).To(Equal("main"))
		Expect(rec.Upstream).To(Equal("origin/main"))
		Expect(rec.UpAhead).To(HaveValue(Equal(0)))
		Expect(rec.UpBehind).To(HaveValue(Equal(0)))
		Expect(rec.MainRef).To(Equal("origin/main"))
		Expect(rec.DefaultRefs).To(Equal([]string{"origin/main"}))
		Expect(rec.Origin).To(Equal(remote))
		Expect(rec.Error).To(BeEmpty())
	})

	It("records the detached sentinel for a detached HEAD", func() {
		base := GinkgoT().TempDir()
		root := filepath.Join(base, "root")
		repo := filepath.Join(root, "repo")

		Expect(os.MkdirAll(root, 0o755)).To(Succeed())
		runGit("", "init", repo)
		runGit(repo, "config", "user.email", "test@example.com")
		runGit(repo, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(repo, "file.txt"), "initial\n")
		runGit(repo, "add", "file.txt")
		runGit(repo, "commit", "-m", "init")
		runGit(repo, "checkout", "--detach")

		records, err := engine.New(nil).Scan(context.Background(), engine.ScanOptions{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Branch).To(Equal(model.DetachedBranch))
		Expect(records[0].Upstream).To(BeEmpty())
		Expect(records[0].UpAhead).To(BeNil())
	})

	It("fetch does not change working tree files", func() {
		base := GinkgoT().TempDir()
		remote := filepath.Join(base, "remote.git")
		root := filepath.Join(base, "root")
		work := filepath.Join(root, "work")

		Expect(os.MkdirAll(root, 0o755)).To(Succeed())
		runGit("", "init", "--bare", remote)
		runGit("", "clone", remote, work)
		runGit(work, "config", "user.email", "test@example.com")
		runGit(work, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(work, "file.txt"), "initial\n")
		runGit(work, "add", "file.txt")
		runGit(work, "commit", "-m", "init")
		runGit(work, "branch", "-M", "main")
		runGit(work, "push", "-u", "origin", "main")

		writeFile(filepath.Join(work, "file.txt"), "dirty\n")
		before := readFile(filepath.Join(work, "file.txt"))

		report, err := engine.New(nil).Sync(context.Background(), engine.SyncOptions{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Outcomes).To(HaveLen(1))
		Expect(report.Outcomes[0].Result).To(Equal("fetch:ok"))

		Expect(readFile(filepath.Join(work, "file.txt"))).To(Equal(before))
		Expect(runGit(work, "status", "--porcelain=v1")).To(ContainSubstring("file.txt"))
	})

	It("records a failed fast-forward pull and persists the issue log", func() {
		base := GinkgoT().TempDir()
		remote := filepath.Join(base, "remote.git")
		root := filepath.Join(base, "root")
		work := filepath.Join(root, "work")
		other := filepath.Join(base, "other")

		Expect(os.MkdirAll(root, 0o755)).To(Succeed())
		runGit("", "init", "--bare", remote)
		runGit("", "clone", remote, work)
		runGit(work, "config", "user.email", "test@example.com")
		runGit(work, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(work, "file.txt"), "base\n")
		runGit(work, "add", "file.txt")
		runGit(work, "commit", "-m", "base")
		runGit(work, "branch", "-M", "main")
		runGit(work, "push", "-u", "origin", "main")

		// Advance the remote from a second clone, then commit locally so the
		// branches diverge and a fast-forward pull cannot apply.
		runGit("", "clone", remote, other)
		runGit(other, "config", "user.email", "test@example.com")
		runGit(other, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(other, "remote.txt"), "remote\n")
		runGit(other, "add", "remote.txt")
		runGit(other, "commit", "-m", "remote change")
		runGit(other, "push", "origin", "main")

		writeFile(filepath.Join(work, "local.txt"), "local\n")
		runGit(work, "add", "local.txt")
		runGit(work, "commit", "-m", "local change")

		report, err := engine.New(nil).Sync(context.Background(), engine.SyncOptions{
			Root:     root,
			MaxDepth: 3,
			Pull:     true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Outcomes[0].Result).To(Equal("pull:fail"))
		Expect(report.Issues).To(HaveLen(1))
		Expect(report.Issues[0].Name).To(Equal("work"))
		Expect(report.LogPath).NotTo(BeEmpty())

		var log model.SyncIssueLog
		Expect(json.Unmarshal([]byte(readFile(report.LogPath)), &log)).To(Succeed())
		Expect(log.Root).To(Equal(root))
		Expect(log.Issues).To(HaveLen(1))
		Expect(log.Issues[0].Action).To(Equal("pull"))
	})

	It("treats untracked files as clean but skips in-progress operations", func() {
		base := GinkgoT().TempDir()
		remote := filepath.Join(base, "remote.git")
		root := filepath.Join(base, "root")
		untracked := filepath.Join(root, "untracked")
		busy := filepath.Join(root, "busy")

		Expect(os.MkdirAll(root, 0o755)).To(Succeed())
		runGit("", "init", "--bare", remote)
		runGit("", "clone", remote, untracked)
		runGit(untracked, "config", "user.email", "test@example.com")
		runGit(untracked, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(untracked, "file.txt"), "base\n")
		runGit(untracked, "add", "file.txt")
		runGit(untracked, "commit", "-m", "base")
		runGit(untracked, "branch", "-M", "main")
		runGit(untracked, "push", "-u", "origin", "main")
		writeFile(filepath.Join(untracked, "stray.txt"), "stray\n")

		runGit("", "init", busy)
		runGit(busy, "config", "user.email", "test@example.com")
		runGit(busy, "config", "user.name", "Lantern Test")
		writeFile(filepath.Join(busy, "file.txt"), "base\n")
		runGit(busy, "add", "file.txt")
		runGit(busy, "commit", "-m", "base")
		head := runGit(busy, "rev-parse", "HEAD")
		writeFile(filepath.Join(busy, ".git", "MERGE_HEAD"), head)

		report, err := engine.New(nil).Sync(context.Background(), engine.SyncOptions{
			Root:      root,
			MaxDepth:  3,
			OnlyClean: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Outcomes).To(HaveLen(2))
		Expect(report.Outcomes[0].Name).To(Equal("busy"))
		Expect(report.Outcomes[0].Result).To(Equal(engine.SkipDirty))
		Expect(report.Outcomes[1].Name).To(Equal("untracked"))
		Expect(report.Outcomes[1].Result).To(Equal("fetch:ok"))
	})
})

func runGit(dir string, args ...string) string {
	baseArgs := []string{"-c", "commit.gpgsign=false"}
	cmd := exec.Command("git", append(baseArgs, args...)...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		Fail("git command failed: " + stderr.String())
	}
	return stdout.String()
}

func writeFile(path, content string) {
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}
