package ml

import (
	"fmt"
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"gonum.org/v1/gonum/stat"
)

const (
	maxLag       = 4
	weeksPerYear = 52

	quantileLow  = 0.33
	quantileHigh = 0.66
)

var rollingWindows = []int{2, 4, 8}

// Row is one feature vector for a municipality-week. The label is the risk
// class of the FOLLOWING week and is absent on the newest observation of
// each municipality.
type Row struct {
	MunicipalityID types.MunicipalityID
	Week           types.EpiWeek
	TargetWeek     types.EpiWeek
	Features       []float64
	Label          types.RiskClass
	HasLabel       bool
}

// Dataset holds engineered feature rows with their column names
type Dataset struct {
	Columns []string
	Rows    []Row
}

// FeatureColumns returns the ordered column names of the engineered matrix
func FeatureColumns() []string {
	cols := []string{"casos", "chuva_mm", "temp_media_c"}
	for _, base := range []string{"casos", "chuva_mm", "temp_media_c"} {
		for lag := 1; lag <= maxLag; lag++ {
			cols = append(cols, fmt.Sprintf("%s_lag%d", base, lag))
		}
	}
	for _, base := range []string{"casos", "chuva_mm", "temp_media_c"} {
		for _, w := range rollingWindows {
			cols = append(cols,
				fmt.Sprintf("%s_media_%ds", base, w),
				fmt.Sprintf("%s_std_%ds", base, w),
				fmt.Sprintf("%s_max_%ds", base, w))
		}
	}
	cols = append(cols,
		"semana_sin", "semana_cos", "tendencia", "trimestre",
		"chuva_x_temp", "casos_x_chuva_lag1", "chuva_temp_ratio")
	return cols
}

// BuildDataset engineers the feature matrix from raw weekly observations.
// Rows are grouped per municipality and ordered by week; risk labels come
// from the next week's case count bucketed at per-municipality quantiles.
func BuildDataset(series []*model.WeeklySeries) (*Dataset, error) {
	if len(series) == 0 {
		return nil, goerr.Wrap(model.ErrNoTrainingData, "no weekly series available")
	}

	byMun := map[types.MunicipalityID][]*model.WeeklySeries{}
	for _, s := range series {
		byMun[s.MunicipalityID] = append(byMun[s.MunicipalityID], s)
	}

	ids := make([]types.MunicipalityID, 0, len(byMun))
	for id := range byMun {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ds := &Dataset{Columns: FeatureColumns()}
	for _, id := range ids {
		group := byMun[id]
		sort.Slice(group, func(i, j int) bool { return group[i].Week.Before(group[j].Week) })
		ds.Rows = append(ds.Rows, buildMunicipalityRows(group)...)
	}

	imputeColumnMeans(ds)
	return ds, nil
}

func buildMunicipalityRows(group []*model.WeeklySeries) []Row {
	n := len(group)
	cases := make([]float64, n)
	rain := make([]float64, n)
	temp := make([]float64, n)
	for i, s := range group {
		cases[i] = float64(s.Cases)
		rain[i] = s.RainfallMM
		temp[i] = s.TempMeanC
	}

	// Risk thresholds from the distribution of next-week case counts
	// within this municipality.
	nextCases := cases[1:]
	qLow, qHigh := quantiles(nextCases)

	rows := make([]Row, 0, n)
	for i, s := range group {
		feats := make([]float64, 0, len(FeatureColumns()))
		feats = append(feats, cases[i], rain[i], temp[i])

		for _, vals := range [][]float64{cases, rain, temp} {
			for lag := 1; lag <= maxLag; lag++ {
				feats = append(feats, lagged(vals, i, lag))
			}
		}

		for _, vals := range [][]float64{cases, rain, temp} {
			for _, w := range rollingWindows {
				win := window(vals, i, w)
				feats = append(feats, stat.Mean(win, nil), rollingStd(win), maxOf(win))
			}
		}

		angle := 2 * math.Pi * float64(s.Week.Week) / weeksPerYear
		feats = append(feats, math.Sin(angle), math.Cos(angle))
		feats = append(feats, float64(i))
		feats = append(feats, float64((s.Week.Week-1)/13+1))

		rainLag1 := lagged(rain, i, 1)
		feats = append(feats,
			rain[i]*temp[i],
			cases[i]*rainLag1,
			rain[i]/(temp[i]+1.0))

		row := Row{
			MunicipalityID: s.MunicipalityID,
			Week:           s.Week,
			TargetWeek:     s.Week.Next(),
			Features:       feats,
		}
		if i < n-1 {
			row.Label = bucketRisk(cases[i+1], qLow, qHigh)
			row.HasLabel = true
		}
		rows = append(rows, row)
	}
	return rows
}

func quantiles(vals []float64) (low, high float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	low = stat.Quantile(quantileLow, stat.Empirical, sorted, nil)
	high = stat.Quantile(quantileHigh, stat.Empirical, sorted, nil)
	return low, high
}

func bucketRisk(nextCases, qLow, qHigh float64) types.RiskClass {
	switch {
	case nextCases <= qLow:
		return types.RiskLow
	case nextCases <= qHigh:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

func lagged(vals []float64, i, lag int) float64 {
	if i-lag < 0 {
		return math.NaN()
	}
	return vals[i-lag]
}

// window returns the trailing slice ending at index i, at most size wide.
// A single observation is enough (min periods 1).
func window(vals []float64, i, size int) []float64 {
	start := i - size + 1
	if start < 0 {
		start = 0
	}
	return vals[start : i+1]
}

func rollingStd(win []float64) float64 {
	if len(win) < 2 {
		return math.NaN()
	}
	return stat.StdDev(win, nil)
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// imputeColumnMeans replaces NaN cells with the column mean over observed
// values, or zero when a column has no observed value at all.
func imputeColumnMeans(ds *Dataset) {
	if len(ds.Rows) == 0 {
		return
	}
	numCols := len(ds.Columns)
	sums := make([]float64, numCols)
	counts := make([]int, numCols)
	for _, r := range ds.Rows {
		for c, v := range r.Features {
			if !math.IsNaN(v) {
				sums[c] += v
				counts[c]++
			}
		}
	}
	means := make([]float64, numCols)
	for c := range means {
		if counts[c] > 0 {
			means[c] = sums[c] / float64(counts[c])
		}
	}
	for _, r := range ds.Rows {
		for c, v := range r.Features {
			if math.IsNaN(v) {
				r.Features[c] = means[c]
			}
		}
	}
}

// Training returns the labeled portion of the dataset as a matrix and
// class-index labels.
func (d *Dataset) Training() (x [][]float64, y []int) {
	for _, r := range d.Rows {
		if !r.HasLabel {
			continue
		}
		x = append(x, r.Features)
		y = append(y, r.Label.Rank())
	}
	return x, y
}

// LatestPerMunicipality returns the newest feature row of each municipality,
// the row used to forecast the following week.
func (d *Dataset) LatestPerMunicipality() map[types.MunicipalityID]*Row {
	out := map[types.MunicipalityID]*Row{}
	for i := range d.Rows {
		r := &d.Rows[i]
		cur, ok := out[r.MunicipalityID]
		if !ok || cur.Week.Before(r.Week) {
			out[r.MunicipalityID] = r
		}
	}
	return out
}
