package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Thresholds decide which supervisor signals are loud enough to post.
type Thresholds struct {
	StopScore  int     // stop score alerts fire at or above this
	StopRate   float64 // system health alerts fire at or above this rate
	QueueDepth int     // or at or above this queue depth
}

// Config controls the relay. Disabled relays report every send as
// skipped instead of erroring, so callers never need to special-case
// environments without Slack.
type Config struct {
	Channel    string
	Enabled    bool
	Language   Language
	Humor      bool
	Thresholds Thresholds
}

// ConfigFromEnv reads the relay configuration with the documented
// defaults: channel #alerts, German, humor off, thresholds 40/0.3/50.
func ConfigFromEnv() Config {
	cfg := Config{
		Channel:  envStr("SLACK_ALERT_CHANNEL", "#alerts"),
		Enabled:  os.Getenv("SLACK_NOTIFICATIONS_ENABLED") == "true",
		Language: Language(envStr("MUJO_LANGUAGE", "de")),
		Humor:    os.Getenv("MUJO_HUMOR_ENABLED") == "true",
		Thresholds: Thresholds{
			StopScore:  envInt("NOTIFY_STOP_SCORE_THRESHOLD", 40),
			StopRate:   envFloat("NOTIFY_STOP_RATE_THRESHOLD", 0.3),
			QueueDepth: envInt("NOTIFY_QUEUE_DEPTH_THRESHOLD", 50),
		},
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// slackPoster is the slice of *slack.Client the relay uses. Tests
// substitute a recorder.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Result reports the outcome of one send. A suppressed message (below
// threshold, clean completion) is a success with nothing posted.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

var resultDisabled = Result{Success: false, Error: "slack notifications disabled"}

// Relay posts supervisor alerts to Slack.
type Relay struct {
	poster slackPoster
	cfg    Config
}

// NewRelay builds a relay from a bot token. An empty token produces a
// permanently disabled relay.
func NewRelay(botToken string, cfg Config) *Relay {
	if botToken == "" {
		cfg.Enabled = false
		return &Relay{cfg: cfg}
	}
	return &Relay{poster: slack.New(botToken), cfg: cfg}
}

// NewRelayWithPoster is for tests.
func NewRelayWithPoster(poster slackPoster, cfg Config) *Relay {
	return &Relay{poster: poster, cfg: cfg}
}

// Enabled reports whether the relay will actually post.
func (r *Relay) Enabled() bool { return r.cfg.Enabled && r.poster != nil }

// Config returns a copy of the active configuration.
func (r *Relay) Config() Config { return r.cfg }

// StopScore is the audit verdict for one task.
type StopScore struct {
	Score        int      `json:"score"`
	Severity     string   `json:"severity"` // LOW, MEDIUM, HIGH, CRITICAL
	StopRequired bool     `json:"stopRequired"`
	Reasons      []string `json:"reasons"`
}

// SendStopScoreAlert posts a stop score alert when the score reaches
// the configured threshold. Scores below it are suppressed.
func (r *Relay) SendStopScoreAlert(ctx context.Context, taskName string, score StopScore, extra string) Result {
	if !r.Enabled() {
		return resultDisabled
	}
	if score.Score < r.cfg.Thresholds.StopScore {
		return Result{Success: true}
	}

	emoji := severityEmoji(score.Severity)
	stopRequired := "NO"
	if score.StopRequired {
		stopRequired = "YES"
	}
	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("%s STOP Score Alert", emoji)),
		sectionBlock(fmt.Sprintf("*Task:* %s\n*STOP Score:* %d/100\n*Severity:* %s\n*Stop Required:* %s",
			taskName, score.Score, score.Severity, stopRequired)),
	}
	if len(score.Reasons) > 0 {
		blocks = append(blocks, sectionBlock("*Reasons:*\n"+bulletList(score.Reasons)))
	}
	if extra != "" {
		blocks = append(blocks, sectionBlock("*Context:*\n"+extra))
	}
	blocks = append(blocks, slack.NewDividerBlock(), r.footerBlock("Supervisor Alert"))

	return r.post(ctx, fmt.Sprintf("%s STOP Score Alert: %s", emoji, taskName), blocks)
}

// SystemHealth is a snapshot of one supervised system.
type SystemHealth struct {
	Status      string  `json:"status"` // healthy, degraded, unhealthy
	StopRate    float64 `json:"stopRate"`
	QueueDepth  int     `json:"queueDepth"`
	ActiveTasks int     `json:"activeTasks"`
}

// SendSystemHealthAlert posts a health alert when the system is not
// healthy or a threshold is breached. Healthy systems under both
// thresholds are suppressed.
func (r *Relay) SendSystemHealthAlert(ctx context.Context, systemID string, health SystemHealth) Result {
	if !r.Enabled() {
		return resultDisabled
	}
	needsAlert := health.Status != "healthy" ||
		health.StopRate >= r.cfg.Thresholds.StopRate ||
		health.QueueDepth >= r.cfg.Thresholds.QueueDepth
	if !needsAlert {
		return Result{Success: true}
	}

	emoji := statusEmoji(health.Status)
	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("%s System Health Alert", emoji)),
		sectionBlock(fmt.Sprintf("*System:* %s\n*Status:* %s\n*Stop Rate:* %.0f%%\n*Queue Depth:* %d\n*Active Tasks:* %d",
			systemID, health.Status, health.StopRate*100, health.QueueDepth, health.ActiveTasks)),
		slack.NewDividerBlock(),
		r.footerBlock("Meta Supervisor"),
	}
	return r.post(ctx, fmt.Sprintf("%s System Health Alert: %s", emoji, systemID), blocks)
}

// TaskCompletion is the closing status proposal for a task.
type TaskCompletion struct {
	Status    string   `json:"status"` // COMPLETE, COMPLETE_WITH_GAPS, STOP_REQUIRED
	Risks     []string `json:"risks"`
	Gaps      []string `json:"gaps"`
	NextSteps []string `json:"nextSteps"`
	Evidence  int      `json:"evidence"`
}

// SendTaskCompletionAlert posts a completion alert. Clean completions
// are suppressed: only STOP_REQUIRED and COMPLETE_WITH_GAPS reach the
// channel.
func (r *Relay) SendTaskCompletionAlert(ctx context.Context, taskID string, completion TaskCompletion) Result {
	if !r.Enabled() {
		return resultDisabled
	}
	if completion.Status == "COMPLETE" {
		return Result{Success: true}
	}

	emoji := "⚠️"
	if completion.Status == "STOP_REQUIRED" {
		emoji = "🛑"
	}
	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("%s Task %s", emoji, strings.ReplaceAll(completion.Status, "_", " "))),
		sectionBlock(fmt.Sprintf("*Task ID:* %s\n*Status:* %s", taskID, completion.Status)),
	}
	if len(completion.Risks) > 0 {
		blocks = append(blocks, sectionBlock("*Risks:*\n"+bulletList(completion.Risks)))
	}
	if len(completion.Gaps) > 0 {
		blocks = append(blocks, sectionBlock("*Gaps:*\n"+bulletList(completion.Gaps)))
	}
	if len(completion.NextSteps) > 0 {
		blocks = append(blocks, sectionBlock("*Next Steps:*\n"+bulletList(completion.NextSteps)))
	}
	if completion.Evidence > 0 {
		blocks = append(blocks, sectionBlock(fmt.Sprintf("*Evidence:* %d artefacts collected", completion.Evidence)))
	}
	blocks = append(blocks, slack.NewDividerBlock(), r.footerBlock("Cloud Assistant"))

	return r.post(ctx, fmt.Sprintf("%s Task %s: %s", emoji, completion.Status, taskID), blocks)
}

// SendCustomMessage posts a free-form supervisor message. Info and
// success levels pass through the humor layer when enabled.
func (r *Relay) SendCustomMessage(ctx context.Context, title, message, level string) Result {
	if !r.Enabled() {
		return resultDisabled
	}

	var emoji string
	humorCtx := ContextInfo
	switch level {
	case "error":
		emoji = "🔴"
		humorCtx = ContextAlert
	case "warning":
		emoji = "⚠️"
		humorCtx = ContextAlert
	case "success":
		emoji = "✅"
		humorCtx = ContextSuccess
	default:
		emoji = "ℹ️"
	}
	if r.cfg.Humor {
		message = AddHumor(message, humorCtx, r.cfg.Language)
	}

	blocks := []slack.Block{
		headerBlock(fmt.Sprintf("%s %s", emoji, title)),
		sectionBlock(message),
		slack.NewDividerBlock(),
		r.footerBlock("Supervisor System"),
	}
	return r.post(ctx, fmt.Sprintf("%s %s", emoji, title), blocks)
}

func (r *Relay) post(ctx context.Context, fallbackText string, blocks []slack.Block) Result {
	_, _, err := r.poster.PostMessageContext(ctx, r.cfg.Channel,
		slack.MsgOptionText(fallbackText, false),
		slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true}
}

func (r *Relay) footerBlock(source string) slack.Block {
	footer := fmt.Sprintf("%s | %s | %s",
		Signature(r.cfg.Language), source, time.Now().Format("2006-01-02 15:04:05"))
	return slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, footer, false, false))
}

func headerBlock(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, text, true, false))
}

func sectionBlock(text string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(strings.ReplaceAll(item, "_", " "))
	}
	return b.String()
}

func severityEmoji(severity string) string {
	switch severity {
	case "CRITICAL":
		return "🔴"
	case "HIGH":
		return "🟠"
	case "MEDIUM":
		return "🟡"
	case "LOW":
		return "🟢"
	default:
		return "ℹ️"
	}
}

func statusEmoji(status string) string {
	switch status {
	case "unhealthy":
		return "🔴"
	case "degraded":
		return "🟡"
	default:
		return "🟢"
	}
}
