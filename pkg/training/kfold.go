package training

import "fmt"

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold splits rows into k folds without shuffling. Classes are
// encoded by first appearance and dealt round-robin over their sorted order,
// so each fold receives a near-equal share of every class.
func StratifiedKFold(y []int, k int) ([]Fold, error) {
	n := len(y)
	if k < 2 {
		return nil, fmt.Errorf("%w: %d folds", ErrInvalidConfiguration, k)
	}
	if k > n {
		return nil, fmt.Errorf("%w: %d folds for %d samples", ErrInvalidConfiguration, k, n)
	}

	code := make(map[int]int)
	encoded := make([]int, n)
	for i, label := range y {
		c, ok := code[label]
		if !ok {
			c = len(code)
			code[label] = c
		}
		encoded[i] = c
	}
	classes := len(code)

	counts := make([]int, classes)
	for _, c := range encoded {
		counts[c]++
	}
	largest := 0
	for _, c := range counts {
		if c > largest {
			largest = c
		}
	}
	if k > largest {
		return nil, fmt.Errorf("%w: %d folds exceed every class size", ErrInvalidConfiguration, k)
	}

	order := make([]int, 0, n)
	for c, count := range counts {
		for i := 0; i < count; i++ {
			order = append(order, c)
		}
	}
	allocation := make([][]int, k)
	for f := range allocation {
		allocation[f] = make([]int, classes)
		for i := f; i < n; i += k {
			allocation[f][order[i]]++
		}
	}

	testFold := make([]int, n)
	for c := 0; c < classes; c++ {
		var assigned []int
		for f := 0; f < k; f++ {
			for i := 0; i < allocation[f][c]; i++ {
				assigned = append(assigned, f)
			}
		}
		next := 0
		for i, e := range encoded {
			if e == c {
				testFold[i] = assigned[next]
				next++
			}
		}
	}

	folds := make([]Fold, k)
	for i, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds, nil
}
