package ml

import (
	"math/rand"

	"github.com/jonboulle/clockwork"
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

const testFraction = 0.2

// Trainer fits and evaluates a risk classifier from engineered features
type Trainer struct {
	params ForestParams
	clock  clockwork.Clock
}

// NewTrainer creates a Trainer. The clock stamps the model version.
func NewTrainer(params ForestParams, clock clockwork.Clock) *Trainer {
	return &Trainer{params: params.withDefaults(), clock: clock}
}

// Train fits a forest on the labeled rows of the dataset using a stratified
// 80/20 holdout, and returns the model together with its evaluation record.
func (t *Trainer) Train(ds *Dataset) (*Model, *model.ModelMetrics, error) {
	x, y := ds.Training()
	if len(x) == 0 {
		return nil, nil, goerr.Wrap(model.ErrNoTrainingData, "no labeled rows in dataset")
	}

	trainIdx, testIdx := stratifiedSplit(y, testFraction, t.params.Seed)

	trainX, trainY := subset(x, y, trainIdx)
	forest, err := TrainForest(trainX, trainY, len(types.RiskClasses()), t.params)
	if err != nil {
		return nil, nil, err
	}

	now := t.clock.Now()
	version := types.ModelVersion("v" + now.Format("20060102_150405"))

	testX, testY := subset(x, y, testIdx)
	metrics, err := evaluate(forest, testX, testY)
	if err != nil {
		return nil, nil, err
	}
	metrics.ModelVersion = version
	metrics.ModelType = types.ModelTypeRandomForest
	metrics.TrainedAt = now
	metrics.TrainingSamples = len(trainIdx)
	metrics.TestSamples = len(testIdx)
	metrics.FeatureCount = forest.NumFeatures
	metrics.Params = map[string]any{
		"num_trees":         forest.Params.NumTrees,
		"max_depth":         forest.Params.MaxDepth,
		"min_samples_split": forest.Params.MinSamplesSplit,
		"seed":              forest.Params.Seed,
	}

	m := &Model{
		Version:   version,
		Type:      types.ModelTypeRandomForest,
		TrainedAt: now,
		Columns:   ds.Columns,
		Forest:    forest,
	}
	return m, metrics, nil
}

// stratifiedSplit partitions sample indices per class so that the test set
// keeps the class proportions. Deterministic for a given seed.
func stratifiedSplit(y []int, fraction float64, seed int64) (train, test []int) {
	byClass := map[int][]int{}
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for c := 0; c < len(types.RiskClasses()); c++ {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(float64(len(idx)) * fraction)
		// Keep at least one sample of each class on the training side
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		if nTest < 0 {
			nTest = 0
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	sx := make([][]float64, len(idx))
	sy := make([]int, len(idx))
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}
	return sx, sy
}

// evaluate computes accuracy, the confusion matrix and macro plus per-class
// precision/recall/F1 on the holdout.
func evaluate(forest *Forest, x [][]float64, y []int) (*model.ModelMetrics, error) {
	classes := types.RiskClasses()
	confusion := make([][]int, len(classes))
	for i := range confusion {
		confusion[i] = make([]int, len(classes))
	}

	correct := 0
	for i, row := range x {
		pred, _, err := forest.Predict(row)
		if err != nil {
			return nil, err
		}
		confusion[y[i]][pred]++
		if pred == y[i] {
			correct++
		}
	}

	m := &model.ModelMetrics{
		PerClass:        map[types.RiskClass]model.ClassMetrics{},
		ConfusionMatrix: confusion,
	}
	if len(x) > 0 {
		m.Accuracy = float64(correct) / float64(len(x))
	}

	for c, class := range classes {
		var tp, fp, fn int
		for other := range classes {
			if other == c {
				tp = confusion[c][c]
				continue
			}
			fn += confusion[c][other]
			fp += confusion[other][c]
		}

		var precision, recall, f1 float64
		if tp+fp > 0 {
			precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			recall = float64(tp) / float64(tp+fn)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		m.PerClass[class] = model.ClassMetrics{Precision: precision, Recall: recall, F1: f1}
		m.PrecisionMacro += precision / float64(len(classes))
		m.RecallMacro += recall / float64(len(classes))
		m.F1Macro += f1 / float64(len(classes))
	}
	return m, nil
}
