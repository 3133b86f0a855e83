package domain

// Outlier is the reserved cluster label for notes not density-reachable
// from any cluster core point.
const Outlier = -1

// OutlierLabel and OutlierSummary are the fixed descriptive metadata
// for the outlier group. The outlier group is never named by frequency
// analysis.
const (
	OutlierLabel   = "Uncategorized"
	OutlierSummary = "Notes that do not fit any topic cluster"
)

// ClusterLabel identifies a dense group of notes (>= 0) or Outlier.
// Every embedded note carries exactly one label after a clustering
// pass; labels are mutable across passes.
type ClusterLabel = int

// Cluster is a topical group of notes. Label and Summary are
// regenerated whenever membership changes.
type Cluster struct {
	// ID is the cluster label assigned in discovery order, or Outlier.
	ID ClusterLabel

	// Label is the short human-readable name derived from member titles.
	Label string

	// Summary is a one-sentence description of the cluster.
	Summary string

	// Members are the keys of the notes in this cluster.
	Members []NoteKey
}

// Size returns the number of member notes.
func (c Cluster) Size() int {
	return len(c.Members)
}
