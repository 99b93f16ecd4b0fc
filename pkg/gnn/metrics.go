package gnn

import "sort"

// Metrics summarizes model quality on a labeled set.
type Metrics struct {
	Accuracy float64 `json:"accuracy"`
	AUC      float64 `json:"auc"`
	Samples  int     `json:"samples"`
}

// Evaluate scores every labeled graph and reports accuracy at 0.5 plus a
// rank-based AUC estimate.
func (m *Model) Evaluate(graphs []Graph) (Metrics, error) {
	var probs []float64
	var labels []float64
	for _, g := range graphs {
		if !g.HasLabel || len(g.X) == 0 {
			continue
		}
		p, _, err := m.Predict(g, 0.5)
		if err != nil {
			return Metrics{}, err
		}
		probs = append(probs, p)
		labels = append(labels, g.Label)
	}
	if len(probs) == 0 {
		return Metrics{}, ErrNoEvaluable
	}

	correct := 0
	for i, p := range probs {
		predicted := 0.0
		if p > 0.5 {
			predicted = 1.0
		}
		if predicted == labels[i] {
			correct++
		}
	}

	return Metrics{
		Accuracy: float64(correct) / float64(len(probs)),
		AUC:      rankAUC(probs, labels),
		Samples:  len(probs),
	}, nil
}

// rankAUC computes AUC via the Mann-Whitney U statistic: the mean rank of
// positive scores against the count of positives and negatives. Returns 0.5
// when either class is absent.
func rankAUC(probs, labels []float64) float64 {
	n := len(probs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	// Average ranks across ties.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probs[idx[j]] == probs[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var pos, rankSum float64
	for i, y := range labels {
		if y == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
