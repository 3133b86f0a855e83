package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// minTokenLength filters noise words like "a", "to", "of" from title
// frequency analysis.
const minTokenLength = 3

// topTokenCount is how many ranked tokens make up a cluster label.
const topTokenCount = 2

// Describe derives a human-readable label and summary for a cluster
// from its member note titles. Titles are tokenized, lowercased and
// stripped of punctuation; tokens are ranked by frequency and the top
// ones, title-cased, become the label.
//
// The outlier group is never named this way; callers use
// domain.OutlierLabel and domain.OutlierSummary for it.
func Describe(titles []string) (label, summary string) {
	freq := make(map[string]int)
	var order []string //nolint:prealloc // distinct token count unknown

	for _, title := range titles {
		for _, token := range titleTokens(title) {
			if freq[token] == 0 {
				order = append(order, token)
			}
			freq[token]++
		}
	}

	// Rank by frequency, first-seen order breaking ties so the label is
	// deterministic for a given title ordering.
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	top := order
	if len(top) > topTokenCount {
		top = top[:topTokenCount]
	}

	if len(top) == 0 {
		label = "Untitled Topic"
	} else {
		cased := make([]string, len(top))
		for i, token := range top {
			cased[i] = titleCase(token)
		}
		label = strings.Join(cased, " ")
	}

	switch {
	case len(top) == 0:
		summary = fmt.Sprintf("A group of %d notes", len(titles))
	default:
		summary = fmt.Sprintf("A group of %d notes about %s", len(titles), strings.Join(top, ", "))
	}

	return label, summary
}

// DescribeClusters names every cluster in the label map, returning
// clusters sorted by id with the outlier group last. keys maps
// NoteKey.String() back to the key itself.
func DescribeClusters(
	labels map[string]domain.ClusterLabel,
	keys map[string]domain.NoteKey,
) []domain.Cluster {
	members := make(map[domain.ClusterLabel][]domain.NoteKey)
	memberTitles := make(map[domain.ClusterLabel][]string)

	ids := make([]string, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		label := labels[id]
		members[label] = append(members[label], keys[id])
		memberTitles[label] = append(memberTitles[label], keys[id].Title)
	}

	clusterIDs := make([]domain.ClusterLabel, 0, len(members))
	for id := range members {
		if id != domain.Outlier {
			clusterIDs = append(clusterIDs, id)
		}
	}
	sort.Ints(clusterIDs)

	clusters := make([]domain.Cluster, 0, len(members))
	for _, id := range clusterIDs {
		name, summary := Describe(memberTitles[id])
		clusters = append(clusters, domain.Cluster{
			ID:      id,
			Label:   name,
			Summary: summary,
			Members: members[id],
		})
	}

	if outliers, ok := members[domain.Outlier]; ok {
		clusters = append(clusters, domain.Cluster{
			ID:      domain.Outlier,
			Label:   domain.OutlierLabel,
			Summary: domain.OutlierSummary,
			Members: outliers,
		})
	}

	return clusters
}

// titleTokens splits a title into lowercased alphanumeric tokens of at
// least minTokenLength runes.
func titleTokens(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var tokens []string //nolint:prealloc // filtered count unknown
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// titleCase upper-cases the first rune of a token.
func titleCase(token string) string {
	runes := []rune(token)
	if len(runes) == 0 {
		return token
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
