package slackalert_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slack-go/slack"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/service/slackalert"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := slackalert.New("", "#alertas")
	gt.Error(t, err)

	_, err = slackalert.New("xoxb-token", "")
	gt.Error(t, err)

	c, err := slackalert.New("xoxb-token", "#alertas")
	gt.NoError(t, err)
	gt.Equal(t, c.Name(), "slack")
}

func TestBuildBlocks(t *testing.T) {
	week := types.EpiWeek{Year: 2024, Week: 31}
	high, err := model.NewPrediction(1, week, types.RiskHigh, 0.1, 0.1, 0.8, "v20240720_090000")
	gt.NoError(t, err)
	high.MunicipalityName = "Kuito"

	report := model.ComposeAlertReport(week, []*model.Prediction{high},
		time.Date(2024, 7, 22, 18, 0, 0, 0, time.UTC))

	blocks := slackalert.BuildBlocks(report)
	gt.True(t, len(blocks) >= 3)

	header, ok := blocks[0].(*slack.HeaderBlock)
	gt.True(t, ok)
	gt.True(t, header.Text.Text != "")

	// Risk fields include the municipality
	section, ok := blocks[2].(*slack.SectionBlock)
	gt.True(t, ok)
	gt.True(t, len(section.Fields) == 1)
}
