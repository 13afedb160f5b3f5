package dml

import (
	"math/rand/v2"

	"github.com/StatyMcStats/EconML/pkg/errors"
)

// Fold holds the train/test row indices of a single cross-fitting split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold partitions row indices into k disjoint, exhaustive test sets of
// near-equal size. The split is deterministic by default: indices are taken
// in order, so repeated fits over the same data produce identical residuals.
// Shuffling before partitioning is an explicit opt-in with a fixed seed.
type KFold struct {
	nSplits int
	shuffle bool
	seed    uint64
}

// NewKFold creates a k-fold splitter. Set shuffle to randomize the index
// order before partitioning; seed then fixes the permutation.
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{nSplits: nSplits, shuffle: shuffle, seed: seed}
}

// NSplits returns the number of folds.
func (kf *KFold) NSplits() int {
	return kf.nSplits
}

// Split partitions {0..nSamples-1} into folds. Every index lands in exactly
// one test set and in the training set of every other fold.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.nSplits < 2 {
		return nil, errors.NewValueError("KFold.Split", "nSplits must be at least 2")
	}
	if kf.nSplits > nSamples {
		return nil, errors.NewValueError("KFold.Split", "nSplits cannot exceed the number of samples")
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.shuffle {
		r := rand.New(rand.NewPCG(kf.seed, kf.seed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.nSplits)
	foldSize := nSamples / kf.nSplits
	remainder := nSamples % kf.nSplits

	inTest := make([]bool, nSamples)
	current := 0
	for f := 0; f < kf.nSplits; f++ {
		testSize := foldSize
		if f < remainder {
			testSize++
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[current:current+testSize])
		current += testSize

		for _, idx := range testIndices {
			inTest[idx] = true
		}
		trainIndices := make([]int, 0, nSamples-testSize)
		for _, idx := range indices {
			if !inTest[idx] {
				trainIndices = append(trainIndices, idx)
			}
		}
		for _, idx := range testIndices {
			inTest[idx] = false
		}

		folds[f] = Fold{TrainIndices: trainIndices, TestIndices: testIndices}
	}
	return folds, nil
}
