// Package discord posts value-signal alerts to a Discord webhook so a
// human watching the channel sees a fired signal without polling the
// HTTP service.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fhover/scanner/internal/fhtypes"
	"github.com/fhover/scanner/internal/telemetry"
)

type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		telemetry.Warnf("discord: rate limited")
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}

	return nil
}

const (
	ColorGreen  = 0x2ECC71
	ColorYellow = 0xF1C40F
)

// SignalAlert posts a fired value signal: both teams, the model's fair
// odds against the resolved market price, and the recommended stake.
func (n *Notifier) SignalAlert(ctx context.Context, r fhtypes.ScanResult) error {
	marketOdds := "n/a"
	edge := "n/a"
	if r.Quote != nil {
		marketOdds = fmt.Sprintf("%.2f (%s)", r.Quote.Price, r.Quote.ProviderID)
	}
	if r.EdgePct != nil {
		edge = fmt.Sprintf("+%.1f%%", *r.EdgePct)
	}

	return n.SendEmbed(ctx, Embed{
		Title: fmt.Sprintf("FH Over 0.5 signal — %s vs %s", r.HomeTeam, r.AwayTeam),
		Color: ColorGreen,
		Fields: []Field{
			{Name: "League", Value: r.LeagueName, Inline: true},
			{Name: "Kickoff", Value: r.KickoffUTC.Format(time.RFC3339), Inline: true},
			{Name: "Fair odds", Value: fmt.Sprintf("%.2f", r.FairOdds), Inline: true},
			{Name: "Market odds", Value: marketOdds, Inline: true},
			{Name: "Edge", Value: edge, Inline: true},
			{Name: "Stake", Value: fmt.Sprintf("%.2f (%.1f%% of bankroll)", r.Stake.StakeAmount, r.Stake.StakeFraction*100), Inline: true},
		},
	})
}

// ScanSummary posts a one-line summary of a completed scan.
func (n *Notifier) ScanSummary(ctx context.Context, scanned, skipped, signals int) error {
	return n.SendEmbed(ctx, Embed{
		Title:       "Scan complete",
		Description: fmt.Sprintf("%d fixtures scanned, %d skipped, %d signals fired", scanned, skipped, signals),
		Color:       ColorYellow,
	})
}
