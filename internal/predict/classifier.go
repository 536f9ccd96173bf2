package predict

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Classifier returns P(yrfi = 1) for an encoded feature vector.
type Classifier interface {
	Predict(x []float64) float64
}

// KindLogistic marks a logistic-regression artifact.
const KindLogistic = "logistic"

// TreeNode is one node of a boosted-tree JSON dump. Leaves carry Leaf;
// splits send x[feature] < SplitCondition to Yes.
type TreeNode struct {
	NodeID         int        `json:"nodeid"`
	Split          string     `json:"split,omitempty"`
	SplitCondition float64    `json:"split_condition,omitempty"`
	Yes            int        `json:"yes,omitempty"`
	No             int        `json:"no,omitempty"`
	Missing        int        `json:"missing,omitempty"`
	Leaf           *float64   `json:"leaf,omitempty"`
	Children       []TreeNode `json:"children,omitempty"`
}

// Trees is a boosted ensemble: sigmoid(margin(base) + sum of leaves).
type Trees struct {
	BaseScore float64
	Roots     []TreeNode
	// Names resolves named splits ("home_era") to vector positions.
	Names map[string]int

	flat []map[int]*TreeNode
}

// NewTrees indexes the nodes of every tree.
func NewTrees(roots []TreeNode, baseScore float64, names []string) *Trees {
	t := &Trees{BaseScore: baseScore, Roots: roots, Names: make(map[string]int, len(names))}
	for i, n := range names {
		t.Names[n] = i
	}
	t.flat = make([]map[int]*TreeNode, len(roots))
	for i := range roots {
		m := make(map[int]*TreeNode)
		var walk func(n *TreeNode)
		walk = func(n *TreeNode) {
			m[n.NodeID] = n
			for j := range n.Children {
				walk(&n.Children[j])
			}
		}
		walk(&t.Roots[i])
		t.flat[i] = m
	}
	return t
}

// Predict sums the leaf of every tree on the base margin.
func (t *Trees) Predict(x []float64) float64 {
	margin := logit(t.BaseScore)
	for i := range t.Roots {
		margin += t.leaf(i, x)
	}
	return sigmoid(margin)
}

func (t *Trees) leaf(tree int, x []float64) float64 {
	nodes := t.flat[tree]
	n := &t.Roots[tree]
	for depth := 0; depth < 64; depth++ {
		if n.Leaf != nil {
			return *n.Leaf
		}
		next := n.No
		idx, ok := t.feature(n.Split)
		switch {
		case !ok || idx >= len(x) || math.IsNaN(x[idx]):
			next = n.Missing
		case x[idx] < n.SplitCondition:
			next = n.Yes
		}
		child, ok := nodes[next]
		if !ok {
			return 0
		}
		n = child
	}
	return 0
}

func (t *Trees) feature(split string) (int, bool) {
	if i, ok := t.Names[split]; ok {
		return i, true
	}
	if rest, ok := strings.CutPrefix(split, "f"); ok {
		if i, err := strconv.Atoi(rest); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Logistic is a linear model on the encoded vector.
type Logistic struct {
	Kind      string    `json:"kind"`
	Features  []string  `json:"features,omitempty"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// Predict returns sigmoid(intercept + coef . x).
func (l *Logistic) Predict(x []float64) float64 {
	z := l.Intercept
	for i, w := range l.Coef {
		if i < len(x) {
			z += w * x[i]
		}
	}
	return sigmoid(z)
}

// Save writes the artifact as JSON.
func (l *Logistic) Save(path string) error {
	l.Kind = KindLogistic
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return eris.Wrap(err, "predict: marshal model")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "predict: create model dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "predict: write model %s", path)
	}
	return nil
}

// LoadClassifier reads a model artifact: a JSON array of boosted trees, or a
// logistic object. names maps named tree splits to vector positions.
func LoadClassifier(path string, baseScore float64, names []string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: read model %s", path)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.Errorf("predict: model %s is empty", path)
	}

	if trimmed[0] == '[' {
		var roots []TreeNode
		if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, eris.Wrapf(err, "predict: parse tree dump %s", path)
		}
		if len(roots) == 0 {
			return nil, eris.Errorf("predict: tree dump %s has no trees", path)
		}
		return NewTrees(roots, baseScore, names), nil
	}

	var l Logistic
	if err := json.Unmarshal(trimmed, &l); err != nil {
		return nil, eris.Wrapf(err, "predict: parse model %s", path)
	}
	if l.Kind != KindLogistic {
		return nil, eris.Errorf("predict: unsupported model kind %q in %s", l.Kind, path)
	}
	if len(names) > 0 && len(l.Coef) != len(names) {
		return nil, eris.Errorf("predict: model has %d coefficients, encoder yields %d features", len(l.Coef), len(names))
	}
	return &l, nil
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func logit(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return math.Log(p / (1 - p))
}
