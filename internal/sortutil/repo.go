package sortutil

import (
	"sort"
	"strings"

	"github.com/skaphos/lantern/internal/model"
)

// LessNamePath provides deterministic ordering by lowercased repository name
// first, then by path for same-named checkouts.
func LessNamePath(nameI, pathI, nameJ, pathJ string) bool {
	li, lj := strings.ToLower(nameI), strings.ToLower(nameJ)
	if li == lj {
		return pathI < pathJ
	}
	return li < lj
}

// SortRecords orders repository records by Name, then Path.
func SortRecords(records []model.RepositoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return LessNamePath(records[i].Name, records[i].Path, records[j].Name, records[j].Path)
	})
}

// SortFleetEntries orders fleet plan rows by Name, then State, so a local
// checkout and its missing-remote twin keep a stable relative order.
func SortFleetEntries(entries []model.FleetEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return LessNamePath(entries[i].Name, string(entries[i].State), entries[j].Name, string(entries[j].State))
	})
}

// SortRemoteRepos orders forge listing entries by Name.
func SortRemoteRepos(repos []model.RemoteRepo) {
	sort.SliceStable(repos, func(i, j int) bool {
		return LessNamePath(repos[i].Name, repos[i].CloneURL, repos[j].Name, repos[j].CloneURL)
	})
}
