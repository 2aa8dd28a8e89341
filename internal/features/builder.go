package features

import (
	"fmt"

	"churn-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// Builder reproduces the training-time transformation of one model family.
// Build never fails on data quality: absent columns and unparsable cells degrade to
// defaults.
type Builder interface {
	Build(t *Table) Matrix
}

// TreeBuilder encodes features for the random forest and decision tree models:
// binary sex, raw counters and variation metrics, one-hot zone and payment method.
type TreeBuilder struct{}

// LinearBuilder encodes features for the logistic regression model: one-hot sex,
// zone and payment method plus trend, volatility and month-5 ratio of the counters.
type LinearBuilder struct{}

// missingCategory is the label a missing text cell takes when it is encoded as its own
// category.
const missingCategory = "nan"

var builders = map[common.ModelID]Builder{
	common.RandomForest:       TreeBuilder{},
	common.DecisionTree:       TreeBuilder{},
	common.LogisticRegression: LinearBuilder{},
}

// BuilderFor returns the builder for a model identifier.
func BuilderFor(id common.ModelID) (Builder, error) {
	b, ok := builders[id]
	if !ok {
		return nil, fmt.Errorf("no feature builder for model %q", id)
	}
	return b, nil
}

// Build encodes t for the given model. The result is not yet aligned to the model's
// schema.
func Build(t *Table, id common.ModelID) (Matrix, error) {
	b, err := BuilderFor(id)
	if err != nil {
		return Matrix{}, err
	}
	return b.Build(t), nil
}

func (TreeBuilder) Build(t *Table) Matrix {
	src := newSource(t)
	logMissing(src, "tree")
	n := src.len()

	var f frame
	f.add(common.ColAge, src.numbers(common.ColAge))

	sex := make([]float64, n)
	for i := range sex {
		sex[i] = SexIndicator(src.cell(i, common.ColSex))
	}
	f.add(common.ColSex, sex)

	for _, c := range common.MonthColumns {
		f.add(c, src.numbers(c))
	}
	f.add(common.ColVisitVariation, src.numbers(common.ColVisitVariation))
	f.add(common.ColVariationPct, src.numbers(common.ColVariationPct))
	f.add(common.ColSatisfaction, src.numbers(common.ColSatisfaction))

	zone, zoneOK := src.texts(common.ColZone)
	f.oneHot(common.ColZone, zone, zoneOK)
	pay, payOK := src.texts(common.ColPaymentMethod)
	f.oneHot(common.ColPaymentMethod, pay, payOK)

	return f.matrix(n)
}

func (LinearBuilder) Build(t *Table) Matrix {
	src := newSource(t)
	logMissing(src, "linear")
	n := src.len()

	months := make([][]float64, len(common.MonthColumns))
	for j, c := range common.MonthColumns {
		months[j] = src.numbers(c)
	}

	trend := make([]float64, n)
	vol := make([]float64, n)
	ratio := make([]float64, n)
	series := make([]float64, len(months))
	for i := 0; i < n; i++ {
		for j := range months {
			series[j] = months[j][i]
		}
		trend[i] = Trend(series)
		vol[i] = Volatility(series)
		ratio[i] = PriorRatio(series)
	}

	var f frame
	f.add(common.ColAge, src.numbers(common.ColAge))
	for j, c := range common.MonthColumns {
		f.add(c, months[j])
	}
	f.add(common.ColTrend, trend)
	f.add(common.ColVolatility, vol)
	f.add(common.ColM5VsPrior, ratio)

	// Sex stays a raw text category. A missing cell becomes the "nan" category the
	// training data carried; an absent column defaults to "".
	sex, sexOK := src.texts(common.ColSex)
	for i, ok := range sexOK {
		if !ok {
			sex[i] = missingCategory
			sexOK[i] = true
		}
	}
	f.oneHot(common.ColSex, sex, sexOK)

	zone, zoneOK := src.texts(common.ColZone)
	f.oneHot(common.ColZone, zone, zoneOK)
	pay, payOK := src.texts(common.ColPaymentMethod)
	f.oneHot(common.ColPaymentMethod, pay, payOK)

	return f.matrix(n)
}

func logMissing(src source, branch string) {
	if missing := src.missing(); len(missing) > 0 {
		log.Debug().
			Str("branch", branch).
			Strs("columns", missing).
			Int("rows", src.len()).
			Msg("source columns missing, using defaults")
	}
}
