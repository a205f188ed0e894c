package ml

import (
	"errors"
	"fmt"
)

// DecisionTree walks a flat node array from the root at index 0.
type DecisionTree struct {
	nodes    []TreeNode
	features []string
	classes  classTable
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx" yaml:"feature_idx"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	LeftChild  int     `json:"left_child" yaml:"left_child"`
	RightChild int     `json:"right_child" yaml:"right_child"`
	ClassLabel int     `json:"class_label" yaml:"class_label"`
	IsLeaf     bool    `json:"is_leaf" yaml:"is_leaf"`
}

func (dt *DecisionTree) Predict(rows [][]float64) ([]any, error) {
	out := make([]any, 0, len(rows))
	for i, row := range rows {
		idx, err := dt.classify(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		label, err := dt.classes.output(idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, label)
	}
	return out, nil
}

func (dt *DecisionTree) FeatureNames() []string {
	if len(dt.features) == 0 {
		return nil
	}
	return append([]string(nil), dt.features...)
}

func (dt *DecisionTree) Labels() []string {
	return dt.classes.decodeTable()
}

// CheckWidth fails when a split reads past column n.
func (dt *DecisionTree) CheckWidth(n int) error {
	if len(dt.features) > 0 && n != len(dt.features) {
		return fmt.Errorf("model reads %d features, rows have %d", len(dt.features), n)
	}
	for i, node := range dt.nodes {
		if !node.IsLeaf && node.FeatureIdx >= n {
			return fmt.Errorf("node %d splits on feature %d, rows have %d", i, node.FeatureIdx, n)
		}
	}
	return nil
}

func (dt *DecisionTree) classify(features []float64) (int, error) {
	if len(dt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(dt.features) > 0 && len(features) != len(dt.features) {
		return 0, fmt.Errorf("X has %d features, but the model is expecting %d features", len(features), len(dt.features))
	}
	idx := 0
	// a valid tree reaches a leaf in at most len(nodes) steps
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func validateTree(nodes []TreeNode, width, classes int) error {
	if len(nodes) == 0 {
		return errors.New("decision tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.ClassLabel < 0 || (classes > 0 && node.ClassLabel >= classes) {
				return fmt.Errorf("leaf %d has class %d outside [0,%d)", i, node.ClassLabel, classes)
			}
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d has children outside the array", i)
		}
		if node.FeatureIdx < 0 || (width > 0 && node.FeatureIdx >= width) {
			return fmt.Errorf("node %d splits on feature %d", i, node.FeatureIdx)
		}
	}
	return nil
}
