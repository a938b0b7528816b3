package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sentiscope/internal/model"
)

// DefaultShotsPerClass is the number of examples of each label placed in the prompt
const DefaultShotsPerClass = 3

// Shuffler permutes n elements in place
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// SampleExamples renders a balanced few-shot block: up to perClass positive and
// perClass negative examples, shuffled together, each as "text: ...\nlabel: ..."
// and separated by blank lines. A nil rng keeps pool order.
func SampleExamples(examples []model.Example, perClass int, rng Shuffler) string {
	if perClass <= 0 {
		return ""
	}

	var positives, negatives []model.Example
	for _, ex := range examples {
		switch ex.Label {
		case model.LabelPositive:
			positives = append(positives, ex)
		case model.LabelNegative:
			negatives = append(negatives, ex)
		}
	}

	shuffle(positives, rng)
	shuffle(negatives, rng)

	shots := make([]model.Example, 0, 2*perClass)
	shots = append(shots, positives[:min(perClass, len(positives))]...)
	shots = append(shots, negatives[:min(perClass, len(negatives))]...)
	shuffle(shots, rng)

	blocks := make([]string, len(shots))
	for i, ex := range shots {
		blocks[i] = fmt.Sprintf("text: %s\nlabel: %s", ex.Text, ex.Label)
	}
	return strings.Join(blocks, "\n\n")
}

func shuffle(examples []model.Example, rng Shuffler) {
	if rng == nil {
		return
	}
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})
}
