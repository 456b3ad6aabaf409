package ingest

import (
	"math"
	"math/rand"
	"time"

	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// SampleParams controls synthetic series generation for the seed command
type SampleParams struct {
	Weeks int
	Seed  int64
	Start types.EpiWeek
}

// DefaultSampleParams covers roughly three years of history
func DefaultSampleParams() SampleParams {
	return SampleParams{Weeks: 156, Seed: 42, Start: types.EpiWeek{Year: 2022, Week: 1}}
}

// GenerateSample produces a plausible weekly malaria series for one
// municipality: a rainy-season sinusoid, a population-scaled baseline,
// lagged rainfall response and occasional epidemic spikes.
func GenerateSample(mun *model.Municipality, params SampleParams) []*model.WeeklySeries {
	if params.Weeks <= 0 {
		params = DefaultSampleParams()
	}
	rng := rand.New(rand.NewSource(params.Seed + int64(mun.ID)))

	baseline := 10.0
	if mun.Population > 0 {
		baseline = float64(mun.Population) / 20000.0
	}

	out := make([]*model.WeeklySeries, 0, params.Weeks)
	week := params.Start
	rainHistory := []float64{60, 60}

	for i := 0; i < params.Weeks; i++ {
		// Rainy season peaks around week 5 (austral summer)
		season := math.Sin(2 * math.Pi * float64(week.Week-5) / 52)
		rain := 70 + 65*season + rng.NormFloat64()*12
		if rain < 0 {
			rain = 0
		}
		tempMean := 21 + 3*season + rng.NormFloat64()
		humidity := 65 + 15*season + rng.NormFloat64()*4
		if humidity > 100 {
			humidity = 100
		}
		if humidity < 0 {
			humidity = 0
		}

		// Cases respond to rainfall two weeks back
		rainLag := rainHistory[0]
		cases := baseline + 0.35*rainLag + rng.NormFloat64()*baseline*0.2
		if rng.Float64() < 0.03 {
			cases *= 2 + rng.Float64() // epidemic spike
		}
		if cases < 0 {
			cases = 0
		}

		out = append(out, &model.WeeklySeries{
			MunicipalityID:   mun.ID,
			MunicipalityName: mun.Name,
			Week:             week,
			Cases:            int(math.Round(cases)),
			RainfallMM:       math.Round(rain*10) / 10,
			TempMeanC:        math.Round(tempMean*10) / 10,
			TempMinC:         math.Round((tempMean-6)*10) / 10,
			TempMaxC:         math.Round((tempMean+7)*10) / 10,
			HumidityPct:      math.Round(humidity*10) / 10,
			CreatedAt:        time.Now(),
		})

		rainHistory = append(rainHistory[1:], rain)
		week = week.Next()
	}
	return out
}
