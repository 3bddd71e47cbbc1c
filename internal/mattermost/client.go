// Package mattermost provides webhook client for sending moderation alerts to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ecoplant/plant-rewards/internal/config"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const botUsername = "Plant Rewards Bot"

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	publicURL  string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Enabled reports whether messages are delivered.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback  string  `json:"fallback,omitempty"`
	Color     string  `json:"color,omitempty"`
	Pretext   string  `json:"pretext,omitempty"`
	Title     string  `json:"title,omitempty"`
	TitleLink string  `json:"title_link,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Footer    string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = botUsername
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// SubmissionAlert describes a newly submitted planting for moderators.
type SubmissionAlert struct {
	SubmissionID uint
	Title        string
	PlantType    string
	UserName     string
	City         string
	Location     string
}

// SendSubmissionAlert tells moderators a submission is waiting.
func (c *Client) SendSubmissionAlert(ctx context.Context, alert SubmissionAlert) error {
	fields := []Field{
		{Short: true, Title: "Planter", Value: alert.UserName},
		{Short: true, Title: "Plant", Value: alert.PlantType},
	}
	if alert.City != "" {
		fields = append(fields, Field{Short: true, Title: "City", Value: alert.City})
	}
	if alert.Location != "" {
		fields = append(fields, Field{Short: true, Title: "Location", Value: alert.Location})
	}

	return c.SendMessage(ctx, &Message{
		Attachments: []Attachment{{
			Fallback:  fmt.Sprintf("New submission #%d: %s", alert.SubmissionID, alert.Title),
			Color:     "#2e7d32",
			Pretext:   "🌱 New planting awaiting review",
			Title:     alert.Title,
			TitleLink: c.submissionLink(alert.SubmissionID),
			Fields:    fields,
		}},
	})
}

// PendingSubmission represents a submission still waiting for moderation.
type PendingSubmission struct {
	ID        uint
	Title     string
	UserName  string
	CreatedAt time.Time
}

// SendPendingReminder sends the daily reminder about submissions awaiting review.
func (c *Client) SendPendingReminder(ctx context.Context, pending []PendingSubmission, total int64, now time.Time) error {
	if len(pending) == 0 {
		c.log.Debug().Msg("No pending submissions, skipping daily reminder")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 📋 Daily Moderation Reminder\n\nThere are **%d** submissions pending review:\n\n", total)

	for _, p := range pending {
		age := now.Sub(p.CreatedAt)
		ageStr := fmt.Sprintf("%.1f hours", age.Hours())
		if age.Hours() > 24 {
			ageStr = fmt.Sprintf("%.1f days", age.Hours()/24)
		}

		icon := "•"
		if age.Hours() > 48 {
			icon = "⚠️"
		}

		title := p.Title
		if link := c.submissionLink(p.ID); link != "" {
			title = fmt.Sprintf("[%s](%s)", p.Title, link)
		}
		fmt.Fprintf(&b, "%s %s by %s (%s old)\n", icon, title, p.UserName, ageStr)
	}

	if int64(len(pending)) < total {
		fmt.Fprintf(&b, "\n_…and %d more._\n", total-int64(len(pending)))
	}

	return c.SendMessage(ctx, &Message{Text: b.String()})
}

func (c *Client) submissionLink(id uint) string {
	if c.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/admin/submissions/%d", c.publicURL, id)
}
