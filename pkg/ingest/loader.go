package ingest

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"gonum.org/v1/gonum/stat"
)

// Required CSV columns. Optional ones enrich the climate covariates.
var (
	requiredColumns = []string{"municipio", "data_caso", "casos", "chuva_mm", "temp_media_c"}
	optionalColumns = []string{"temp_min_c", "temp_max_c", "umidade_relativa"}
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Record is one cleaned daily case report
type Record struct {
	Municipality string
	Date         time.Time
	Cases        int
	RainfallMM   float64
	TempMeanC    float64
	TempMinC     float64
	TempMaxC     float64
	HumidityPct  float64
}

// Suspect temperature bounds and the outlier multiplier on the 99th
// percentile of case counts.
const (
	tempSuspectLowC  = 10.0
	tempSuspectHighC = 40.0
	outlierQuantile  = 0.99
	outlierFactor    = 3.0
)

// Report summarizes what the loader accepted, dropped and flagged.
// AcceptedRows counts rows that survive parsing and deduplication.
type Report struct {
	TotalRows     int
	AcceptedRows  int
	DroppedRows   int
	DuplicateRows int
	ClippedValues int
	SuspectTemps  int
	CaseOutliers  int
	DropReasons   map[string]int
}

func (r *Report) drop(reason string) {
	r.DroppedRows++
	if r.DropReasons == nil {
		r.DropReasons = map[string]int{}
	}
	r.DropReasons[reason]++
}

// LoadCSV parses and cleans a daily case report CSV. Rows with malformed
// dates or numbers are dropped and counted; negative case counts and
// rainfall are clipped to zero; duplicate (municipality, date) rows keep
// the last occurrence. Suspect mean temperatures and extreme case counts
// are kept but flagged in the report.
func LoadCSV(r io.Reader) ([]Record, *Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to read CSV header")
	}

	colIdx := map[string]int{}
	for i, name := range header {
		colIdx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, nil, goerr.New("missing required column", goerr.V("column", col))
		}
	}

	report := &Report{}
	type dedupKey struct {
		municipality string
		date         time.Time
	}
	byKey := map[dedupKey]Record{}
	var order []dedupKey

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read CSV row")
		}
		report.TotalRows++

		field := func(name string) string {
			idx, ok := colIdx[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		municipality := field("municipio")
		if municipality == "" {
			report.drop("municipio vazio")
			continue
		}

		date, ok := parseDate(field("data_caso"))
		if !ok {
			report.drop("data invalida")
			continue
		}

		cases, ok := parseFloat(field("casos"))
		if !ok {
			report.drop("casos invalido")
			continue
		}
		rain, ok := parseFloat(field("chuva_mm"))
		if !ok {
			report.drop("chuva_mm invalido")
			continue
		}
		tempMean, ok := parseFloat(field("temp_media_c"))
		if !ok {
			report.drop("temp_media_c invalido")
			continue
		}

		if cases < 0 {
			report.ClippedValues++
		}
		if rain < 0 {
			report.ClippedValues++
		}
		if tempMean < tempSuspectLowC || tempMean > tempSuspectHighC {
			report.SuspectTemps++
		}

		rec := Record{
			Municipality: municipality,
			Date:         date,
			Cases:        int(clipNegative(cases)),
			RainfallMM:   clipNegative(rain),
			TempMeanC:    tempMean,
		}
		rec.TempMinC, _ = parseFloat(field("temp_min_c"))
		rec.TempMaxC, _ = parseFloat(field("temp_max_c"))
		rec.HumidityPct, _ = parseFloat(field("umidade_relativa"))

		key := dedupKey{strings.ToLower(municipality), date}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		} else {
			report.DuplicateRows++
		}
		byKey[key] = rec
	}

	out := make([]Record, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	report.AcceptedRows = len(out)
	report.CaseOutliers = countCaseOutliers(out)
	return out, report, nil
}

// countCaseOutliers flags case counts beyond three times the empirical
// 99th percentile, the same rule the surveillance team applies manually.
func countCaseOutliers(records []Record) int {
	if len(records) < 2 {
		return 0
	}
	cases := make([]float64, len(records))
	for i, rec := range records {
		cases[i] = float64(rec.Cases)
	}
	sort.Float64s(cases)
	limit := outlierFactor * stat.Quantile(outlierQuantile, stat.Empirical, cases, nil)
	if limit <= 0 {
		return 0
	}

	n := 0
	for _, rec := range records {
		if float64(rec.Cases) > limit {
			n++
		}
	}
	return n
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clipNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// AggregateWeekly rolls daily records up to epidemiological weeks per
// municipality: case counts are summed, climate covariates averaged.
// Municipality IDs are left unset for the caller to resolve.
func AggregateWeekly(records []Record) []*model.WeeklySeries {
	type bucketKey struct {
		municipality string
		week         types.EpiWeek
	}
	type bucket struct {
		name     string
		cases    int
		rain     float64
		tempMean float64
		tempMin  float64
		tempMax  float64
		humidity float64
		count    int
	}

	buckets := map[bucketKey]*bucket{}
	for _, rec := range records {
		key := bucketKey{strings.ToLower(rec.Municipality), types.EpiWeekOf(rec.Date)}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: rec.Municipality}
			buckets[key] = b
		}
		b.cases += rec.Cases
		b.rain += rec.RainfallMM
		b.tempMean += rec.TempMeanC
		b.tempMin += rec.TempMinC
		b.tempMax += rec.TempMaxC
		b.humidity += rec.HumidityPct
		b.count++
	}

	out := make([]*model.WeeklySeries, 0, len(buckets))
	for key, b := range buckets {
		n := float64(b.count)
		out = append(out, &model.WeeklySeries{
			MunicipalityName: b.name,
			Week:             key.week,
			Cases:            b.cases,
			RainfallMM:       b.rain,
			TempMeanC:        b.tempMean / n,
			TempMinC:         b.tempMin / n,
			TempMaxC:         b.tempMax / n,
			HumidityPct:      b.humidity / n,
			CreatedAt:        time.Now(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MunicipalityName != out[j].MunicipalityName {
			return out[i].MunicipalityName < out[j].MunicipalityName
		}
		return out[i].Week.Before(out[j].Week)
	})
	return out
}
