package discovery_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lantern/internal/discovery"
)

var _ = Describe("Discovery", func() {
	It("matches exclude patterns", func() {
		Expect(discovery.MatchesExclude("/code", "/code/repo/vendor", []string{"**/vendor/**", "vendor"})).To(BeTrue())
		Expect(discovery.MatchesExclude("/code", "/code/scratch", []string{"scratch"})).To(BeTrue())
		Expect(discovery.MatchesExclude("/code", "/code/repo", []string{"**/node_modules/**"})).To(BeFalse())
	})

	It("locates git repositories ordered by name", func() {
		root := GinkgoT().TempDir()
		beta := filepath.Join(root, "beta")
		alpha := filepath.Join(root, "alpha")
		Expect(exec.Command("git", "init", beta).Run()).To(Succeed())
		Expect(exec.Command("git", "init", alpha).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{alpha, beta}))
	})

	It("respects exclude patterns during the walk", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "vendor", "repo2")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{
			Root:     root,
			MaxDepth: 3,
			Exclude:  []string{"**/vendor/**", "vendor"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(BeEmpty())
	})

	It("detects linked .git files", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "repo3")
		Expect(exec.Command("git", "init", repo).Run()).To(Succeed())

		gitDir := filepath.Join(root, "repo3.gitdir")
		Expect(os.Rename(filepath.Join(repo, ".git"), gitDir)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(repo, ".git"), []byte("gitdir: "+gitDir), 0o644)).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{repo}))
	})

	It("detects bare repositories", func() {
		root := GinkgoT().TempDir()
		bare := filepath.Join(root, "mirror.git")
		Expect(exec.Command("git", "init", "--bare", bare).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{bare}))
	})

	It("bounds the walk depth", func() {
		root := GinkgoT().TempDir()
		shallow := filepath.Join(root, "repo1")
		deep := filepath.Join(root, "a", "b", "c", "deep")
		Expect(exec.Command("git", "init", shallow).Run()).To(Succeed())
		Expect(exec.Command("git", "init", deep).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{shallow}))

		repos, err = discovery.Locate(discovery.Options{Root: root, MaxDepth: 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{deep, shallow}))
	})

	It("skips hidden directories unless asked", func() {
		root := GinkgoT().TempDir()
		hidden := filepath.Join(root, ".archive", "repo4")
		Expect(exec.Command("git", "init", hidden).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(BeEmpty())

		repos, err = discovery.Locate(discovery.Options{Root: root, MaxDepth: 3, IncludeHidden: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{hidden}))
	})

	It("does not descend into repositories", func() {
		root := GinkgoT().TempDir()
		outer := filepath.Join(root, "outer")
		Expect(exec.Command("git", "init", outer).Run()).To(Succeed())
		Expect(exec.Command("git", "init", filepath.Join(outer, "inner")).Run()).To(Succeed())

		repos, err := discovery.Locate(discovery.Options{Root: root, MaxDepth: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(repos).To(Equal([]string{outer}))
	})

	It("rejects a missing root", func() {
		_, err := discovery.Locate(discovery.Options{Root: filepath.Join(GinkgoT().TempDir(), "nope")})
		Expect(err).To(MatchError(discovery.ErrInvalidRoot))
	})

	It("rejects a root that is a file", func() {
		root := GinkgoT().TempDir()
		file := filepath.Join(root, "plain.txt")
		Expect(os.WriteFile(file, []byte("x"), 0o644)).To(Succeed())

		_, err := discovery.Locate(discovery.Options{Root: file})
		Expect(err).To(MatchError(discovery.ErrInvalidRoot))
	})
})
