package types_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

func TestParseEpiWeek(t *testing.T) {
	w, err := types.ParseEpiWeek("2024-07")
	gt.NoError(t, err)
	gt.Equal(t, w.Year, 2024)
	gt.Equal(t, w.Week, 7)
	gt.Equal(t, w.String(), "2024-07")

	// Single digit week is accepted and canonicalized
	w, err = types.ParseEpiWeek("2024-7")
	gt.NoError(t, err)
	gt.Equal(t, w.String(), "2024-07")
}

func TestParseEpiWeekRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "2024", "2024-00", "2024-54", "24-07", "2024/07", "abcd-ef"} {
		_, err := types.ParseEpiWeek(input)
		gt.Error(t, err)
	}
}

func TestEpiWeek53(t *testing.T) {
	// 2020 is a 53-week ISO year
	w, err := types.ParseEpiWeek("2020-53")
	gt.NoError(t, err)
	gt.Equal(t, w.Next(), types.EpiWeek{Year: 2021, Week: 1})

	// 2021 is not
	_, err = types.ParseEpiWeek("2021-53")
	gt.Error(t, err)
}

func TestEpiWeekNextPrevRoundTrip(t *testing.T) {
	w := types.EpiWeek{Year: 2024, Week: 1}
	gt.Equal(t, w.Prev().Next(), w)
	gt.Equal(t, w.Prev(), types.EpiWeek{Year: 2023, Week: 52})
}

func TestEpiWeekOf(t *testing.T) {
	// 2024-01-04 is a Thursday in ISO week 1
	w := types.EpiWeekOf(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	gt.Equal(t, w, types.EpiWeek{Year: 2024, Week: 1})

	// December 30 2019 belongs to ISO week 1 of 2020
	w = types.EpiWeekOf(time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC))
	gt.Equal(t, w, types.EpiWeek{Year: 2020, Week: 1})
}

func TestEpiWeekOrdering(t *testing.T) {
	a := types.EpiWeek{Year: 2023, Week: 52}
	b := types.EpiWeek{Year: 2024, Week: 1}
	gt.True(t, a.Before(b))
	gt.False(t, b.Before(a))
	gt.True(t, a.Index() < b.Index())
}

func TestRiskClass(t *testing.T) {
	gt.True(t, types.RiskHigh.IsValid())
	gt.False(t, types.RiskClass("critico").IsValid())
	gt.Equal(t, types.RiskLow.Rank(), 0)
	gt.Equal(t, types.RiskMedium.Rank(), 1)
	gt.Equal(t, types.RiskHigh.Rank(), 2)
	gt.Equal(t, len(types.RiskClasses()), 3)
}
