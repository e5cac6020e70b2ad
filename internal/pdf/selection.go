package pdf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/spherical/pdf-converter/internal/domain"
)

// SelectPages resolves a pdfcpu page selection ("1-3,5", "even", "!2", "l")
// against pageCount and returns the selected zero-based indices in ascending
// order. An empty selection selects every page.
func SelectPages(selection string, pageCount int) ([]int, error) {
	if strings.TrimSpace(selection) == "" {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	parsed, err := api.ParsePageSelection(selection)
	if err != nil {
		return nil, domain.InvalidOptionsError("Invalid pageSelection "+strconv.Quote(selection), err)
	}

	set, err := api.PagesForPageSelection(pageCount, parsed, false, false)
	if err != nil {
		return nil, domain.InvalidOptionsError("Invalid pageSelection "+strconv.Quote(selection), err)
	}

	indices := make([]int, 0, len(set))
	for pageNr, selected := range set {
		if selected && pageNr >= 1 && pageNr <= pageCount {
			indices = append(indices, pageNr-1)
		}
	}
	if len(indices) == 0 {
		return nil, domain.InvalidOptionsError("pageSelection "+strconv.Quote(selection)+" matches no pages", nil)
	}

	sort.Ints(indices)
	return indices, nil
}

