package finetune

import (
	"math/rand"
	"time"

	"github.com/ppiankov/sentiscope/internal/model"
)

const (
	trainFraction = 0.8
	valFraction   = 0.9 // Cumulative: validation ends at 90%
)

// Shuffler permutes n elements in place
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded source; seed 0 seeds from the clock
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Splits holds the train/validation/test partition
type Splits struct {
	Train []model.Example
	Val   []model.Example
	Test  []model.Example
}

// Total returns the number of examples across all splits
func (s Splits) Total() int {
	return len(s.Train) + len(s.Val) + len(s.Test)
}

// Split shuffles examples and partitions them 80/10/10.
// Boundaries are floor(0.8n) and floor(0.9n); the input slice is not modified.
func Split(examples []model.Example, rng Shuffler) Splits {
	shuffled := make([]model.Example, len(examples))
	copy(shuffled, examples)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}

	n := len(shuffled)
	trainEnd := int(trainFraction * float64(n))
	valEnd := int(valFraction * float64(n))

	return Splits{
		Train: shuffled[:trainEnd],
		Val:   shuffled[trainEnd:valEnd],
		Test:  shuffled[valEnd:],
	}
}
