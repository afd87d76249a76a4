package analysis

import (
	"time"

	"github.com/benz9527/xindex/lib/infra"
)

type AnalysisErr string

func (err AnalysisErr) Error() string {
	return string(err)
}

const (
	ErrEmptyDistribution  AnalysisErr = "empty key frequency distribution"
	ErrInvalidSuccessMass AnalysisErr = "success probability mass out of [0, 1]"
	ErrNegativeFrequency  AnalysisErr = "negative key frequency"
	ErrUnsortedKeys       AnalysisErr = "distribution keys are not strictly increasing"
	ErrTreeKeysMismatch   AnalysisErr = "tree keys differ from the distribution keys"
)

const (
	KindOBST   = "obst"
	KindAVL    = "avl"
	KindRBTree = "rbtree"
)

// Distribution is the access model of a static key set. P[i] is the
// probability of a successful search for Keys[i] and Q[j] the probability
// of a failed search landing in the gap between Keys[j-1] and Keys[j].
type Distribution[K infra.OrderedKey] struct {
	Name string
	Keys []K
	P    []float64
	Q    []float64
}

type TreeReport struct {
	Kind         string
	Height       int
	Nodes        int
	ExpectedCost float64
	RealizedCost float64
	Elapsed      time.Duration
}

type Report struct {
	Name string
	Keys int
	// Cost computed by the OBST dynamic program, the lower bound
	// of ExpectedCost over every tree shape.
	OptimalCost float64
	OBST        TreeReport
	AVL         TreeReport
	RBTree      TreeReport
}

// Trees lists the per tree reports in a stable order.
func (r *Report) Trees() []TreeReport {
	if r == nil {
		return nil
	}
	return []TreeReport{r.OBST, r.AVL, r.RBTree}
}
