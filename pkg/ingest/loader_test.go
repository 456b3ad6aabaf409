package ingest_test

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/ingest"
)

const sampleCSV = `municipio,data_caso,casos,chuva_mm,temp_media_c,umidade_relativa
Kuito,2024-01-01,5,12.5,22.1,70
Kuito,2024-01-02,3,8.0,21.5,68
Kuito,2024-01-08,7,20.0,23.0,75
Camacupa,2024-01-01,2,10.0,22.0,65
Camacupa,not-a-date,4,10.0,22.0,65
Camacupa,2024-01-03,-3,-5.0,22.5,66
`

func TestLoadCSV(t *testing.T) {
	records, report, err := ingest.LoadCSV(strings.NewReader(sampleCSV))
	gt.NoError(t, err)

	gt.Equal(t, report.TotalRows, 6)
	gt.Equal(t, report.AcceptedRows, 5)
	gt.Equal(t, report.DroppedRows, 1)
	gt.Equal(t, report.DropReasons["data invalida"], 1)
	gt.Equal(t, report.ClippedValues, 2) // negative casos and chuva_mm
	gt.Equal(t, report.DuplicateRows, 0)

	gt.Equal(t, len(records), 5)

	// Negative values clipped, not dropped
	var clipped *ingest.Record
	for i := range records {
		if records[i].Municipality == "Camacupa" && records[i].Date.Day() == 3 {
			clipped = &records[i]
		}
	}
	gt.True(t, clipped != nil)
	gt.Equal(t, clipped.Cases, 0)
	gt.Equal(t, clipped.RainfallMM, 0.0)
}

func TestLoadCSVMissingColumn(t *testing.T) {
	_, _, err := ingest.LoadCSV(strings.NewReader("municipio,casos\nKuito,3\n"))
	gt.Error(t, err)
}

func TestLoadCSVDeduplicates(t *testing.T) {
	csv := `municipio,data_caso,casos,chuva_mm,temp_media_c
Kuito,2024-01-01,5,10,22
kuito,2024-01-01,9,11,23
`
	records, report, err := ingest.LoadCSV(strings.NewReader(csv))
	gt.NoError(t, err)
	gt.Equal(t, report.TotalRows, 2)
	gt.Equal(t, report.AcceptedRows, 1)
	gt.Equal(t, report.DuplicateRows, 1)
	gt.Equal(t, len(records), 1)
	gt.Equal(t, records[0].Cases, 9) // last occurrence wins
}

func TestLoadCSVQualityFlags(t *testing.T) {
	var b strings.Builder
	b.WriteString("municipio,data_caso,casos,chuva_mm,temp_media_c\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Kuito,%s,5,10,22\n", start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	// An epidemic spike with an implausible mean temperature
	fmt.Fprintf(&b, "Kuito,%s,100,10,45\n", start.AddDate(0, 0, 120).Format("2006-01-02"))

	records, report, err := ingest.LoadCSV(strings.NewReader(b.String()))
	gt.NoError(t, err)
	gt.Equal(t, report.AcceptedRows, 121)
	gt.Equal(t, len(records), 121)
	gt.Equal(t, report.SuspectTemps, 1)
	gt.Equal(t, report.CaseOutliers, 1)
	gt.Equal(t, report.ClippedValues, 0)
}

func TestAggregateWeekly(t *testing.T) {
	records, _, err := ingest.LoadCSV(strings.NewReader(sampleCSV))
	gt.NoError(t, err)

	weekly := ingest.AggregateWeekly(records)

	// Kuito has two ISO weeks (Jan 1-2 and Jan 8), Camacupa one
	gt.Equal(t, len(weekly), 3)

	var kuitoW1 *model.WeeklySeries
	for _, w := range weekly {
		if w.MunicipalityName == "Kuito" && w.Week == (types.EpiWeek{Year: 2024, Week: 1}) {
			kuitoW1 = w
		}
	}
	gt.True(t, kuitoW1 != nil)
	gt.Equal(t, kuitoW1.Cases, 8)         // summed
	gt.Equal(t, kuitoW1.RainfallMM, 20.5) // summed
	gt.True(t, math.Abs(kuitoW1.TempMeanC-21.8) < 1e-9)
	gt.True(t, math.Abs(kuitoW1.HumidityPct-69.0) < 1e-9)
}

func TestGenerateSample(t *testing.T) {
	mun := &model.Municipality{ID: 1, Name: "Kuito", Population: 400000}
	params := ingest.SampleParams{Weeks: 104, Seed: 42, Start: types.EpiWeek{Year: 2022, Week: 1}}

	series := ingest.GenerateSample(mun, params)
	gt.Equal(t, len(series), 104)
	gt.Equal(t, series[0].Week, types.EpiWeek{Year: 2022, Week: 1})
	gt.Equal(t, series[103].Week, types.EpiWeek{Year: 2023, Week: 52})

	for _, s := range series {
		gt.NoError(t, s.Validate())
		gt.True(t, s.HumidityPct >= 0 && s.HumidityPct <= 100)
	}

	// Deterministic for the same seed
	again := ingest.GenerateSample(mun, params)
	gt.Equal(t, series[50].Cases, again[50].Cases)
}
