package gitx

import (
	"strconv"
	"strings"
)

// ParseRevListCount reads the tab-separated pair printed by:
//
//	git rev-list --left-right --count HEAD...<upstream>
//
// Output that does not look like "<ahead>\t<behind>" counts as (0, 0).
func ParseRevListCount(output string) (ahead, behind int) {
	left, right, ok := strings.Cut(strings.TrimSpace(output), "\t")
	if !ok {
		return 0, 0
	}
	ahead, _ = strconv.Atoi(strings.TrimSpace(left))
	behind, _ = strconv.Atoi(strings.TrimSpace(right))
	return ahead, behind
}
