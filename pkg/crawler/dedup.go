package crawler

import (
	"sort"
	"strings"
)

// DedupOptions controls link deduplication.
type DedupOptions struct {
	// IgnoreExtension is stripped from the end of every URL before the
	// substring comparison, so "…/100.html" counts as a prefix of
	// "…/100/101.html".
	IgnoreExtension string
	// DenySuffixes drops any surviving URL whose suffix matches.
	DenySuffixes []string
}

// DedupLinks removes URLs that are sub-paths of a more specific URL in
// the same set, then applies the deny list. The result is a subset of
// the input and running DedupLinks on its own output returns the same
// set.
func DedupLinks(links []string, opts DedupOptions) []string {
	sorted := make([]string, len(links))
	copy(sorted, links)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) < len(sorted[j])
	})

	stripped := make([]string, len(sorted))
	for i, link := range sorted {
		stripped[i] = strings.TrimSuffix(link, opts.IgnoreExtension)
	}

	var kept []string
	for i, link := range sorted {
		contained := false
		for j := i + 1; j < len(sorted); j++ {
			if strings.Contains(stripped[j], stripped[i]) {
				contained = true
				break
			}
		}
		if !contained && !denied(link, opts.DenySuffixes) {
			kept = append(kept, link)
		}
	}

	return kept
}

func denied(link string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(link, suffix) {
			return true
		}
	}
	return false
}
