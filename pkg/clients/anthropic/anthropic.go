package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 2048
)

// Client defines the interface for AI schedule drafting.
type Client interface {
	SuggestShifts(ctx context.Context, brief ScheduleBrief) ([]ShiftSuggestion, error)
}

// ScheduleBrief is what the model sees about the week to staff.
type ScheduleBrief struct {
	WeekStart string          `json:"week_start"`
	Staff     []StaffBrief    `json:"staff"`
	Locations []LocationBrief `json:"locations"`
	Booked    []BookedShift   `json:"booked"`
}

// StaffBrief is one available worker.
type StaffBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// LocationBrief is one client site and its stations.
type LocationBrief struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Stations []string `json:"stations"`
}

// BookedShift is a shift already on the schedule.
type BookedShift struct {
	StaffID    string `json:"staff_id"`
	LocationID string `json:"location_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// ShiftSuggestion is one proposed shift. Dates are yyyy-mm-dd, times HH:mm.
type ShiftSuggestion struct {
	StaffID    string `json:"staff_id"`
	LocationID string `json:"location_id"`
	Station    string `json:"station"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Notes      string `json:"notes"`
}

type anthropicClient struct {
	httpClient *resty.Client
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string) Client {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(30 * time.Second)

	return &anthropicClient{httpClient: client}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one turn of the conversation sent to the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You draft weekly rosters for a security and concierge company.
You receive a JSON brief with the week start date, available staff, client locations with their stations, and shifts already booked.

RULES:
- Cover every station of every location for each day of the week with a day shift (07:00-19:00) and a night shift (19:00-07:00) unless already booked.
- Never book the same staff member on overlapping shifts, and leave at least 11 hours between two shifts of the same person.
- Only use ids that appear in the brief.
- Output ONLY a JSON object: {"shifts": [{"staff_id": "...", "location_id": "...", "station": "...", "date": "YYYY-MM-DD", "start_time": "HH:mm", "end_time": "HH:mm", "notes": ""}]}`

func (c *anthropicClient) SuggestShifts(ctx context.Context, brief ScheduleBrief) ([]ShiftSuggestion, error) {
	briefJSON, err := json.Marshal(brief)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule brief: %w", err)
	}

	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: string(briefJSON)},
			// Prefill the assistant response to force JSON
			{Role: "assistant", Content: "{"},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(apiURL)
	if err != nil {
		return nil, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("anthropic api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return nil, fmt.Errorf("empty response from ai")
	}

	return ParseSuggestions("{" + respBody.Content[0].Text)
}

// ParseSuggestions decodes the model output, tolerating markdown fences.
func ParseSuggestions(text string) ([]ShiftSuggestion, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	var result struct {
		Shifts []ShiftSuggestion `json:"shifts"`
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai response: %w", err)
	}
	return result.Shifts, nil
}
