package slackalert

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/vigilancia-bie/malarisk/pkg/domain/interfaces"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Client posts alert reports to a Slack channel as Block Kit messages
type Client struct {
	api     *slack.Client
	channel string
}

// New creates a Slack alert client
func New(token, channel string) (*Client, error) {
	if token == "" {
		return nil, goerr.New("Slack token is required")
	}
	if channel == "" {
		return nil, goerr.New("Slack channel is required")
	}
	return &Client{
		api:     slack.New(token),
		channel: channel,
	}, nil
}

// Name identifies the channel in logs and audit records
func (c *Client) Name() string {
	return "slack"
}

// SendAlertReport posts the report to the configured channel
func (c *Client) SendAlertReport(ctx context.Context, report *model.AlertReport) error {
	blocks := BuildBlocks(report)

	_, _, err := c.api.PostMessageContext(ctx, c.channel,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(report.Subject(), false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post alert to Slack",
			goerr.V("channel", c.channel))
	}

	ctxlog.From(ctx).Info("Alert posted to Slack",
		"channel", c.channel,
		"week", report.Week,
		"level", report.Level,
	)
	return nil
}

// BuildBlocks assembles the Block Kit layout for a report
func BuildBlocks(report *model.AlertReport) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType,
				fmt.Sprintf("%s Risco de malária - semana %s", levelEmoji(report.Level), report.Week),
				true, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, report.Message, false, false),
			nil, nil),
	}

	if fields := riskFields(report); len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}

	if recs := report.Recommendations(); len(recs) > 0 {
		var sb strings.Builder
		sb.WriteString("*Recomendações:*\n")
		for _, rec := range recs {
			sb.WriteString("• " + rec + "\n")
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, sb.String(), false, false),
			nil, nil))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Gerado em %s · %d município(s) avaliado(s)",
				report.GeneratedAt.Format("02/01/2006 15:04"), len(report.Predictions)),
			false, false),
	))
	return blocks
}

// riskFields lists the alto and medio municipalities as two-column fields
func riskFields(report *model.AlertReport) []*slack.TextBlockObject {
	var fields []*slack.TextBlockObject
	for _, p := range report.HighRisk {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*%s*\n:red_circle: alto (%.2f)", p.MunicipalityName, p.RiskScore),
			false, false))
	}
	for _, p := range report.MediumRisk {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*%s*\n:large_orange_circle: médio (%.2f)", p.MunicipalityName, p.RiskScore),
			false, false))
	}
	// Slack caps section fields at 10
	if len(fields) > 10 {
		fields = fields[:10]
	}
	return fields
}

func levelEmoji(level types.RiskClass) string {
	switch level {
	case types.RiskHigh:
		return "🔴"
	case types.RiskMedium:
		return "🟠"
	default:
		return "🟢"
	}
}

var _ interfaces.Notifier = (*Client)(nil)
