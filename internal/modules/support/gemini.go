// README: Gemini-backed support assistant.
package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.0-flash"

const systemPrompt = `You are the in-app support assistant for a carpooling service where drivers publish
intercity rides and passengers book seats.
Answer briefly and politely, in the language the user writes in.
You can explain: how seat prices work (drivers set a price per seat capped per kilometre,
passengers pay a 10%% platform fee on top), how promo codes work (one use per code per user,
some are first-ride only, some need a minimum ride amount, they never discount the platform fee),
how to cancel a booking (only before the ride starts), and how to report a safety problem
(the Report button on the ride screen).
Never invent booking details, refunds or policies. If the user needs a human, tell them to
file a report with reason "other" and the team will follow up.
Current time: %s.`

type GeminiAssistant struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAssistant(ctx context.Context, apiKey string) (*GeminiAssistant, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "gemini: create client")
	}
	model := client.GenerativeModel(geminiModel)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(512)
	return &GeminiAssistant{client: client, model: model}, nil
}

func (a *GeminiAssistant) Close() error {
	return a.client.Close()
}

func (a *GeminiAssistant) Reply(ctx context.Context, now string, history []Turn, message string) (string, error) {
	// model settings are shared; the system instruction is per request
	model := *a.model
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(fmt.Sprintf(systemPrompt, now))}}

	cs := model.StartChat()
	for _, t := range history {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Text)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", errors.Wrap(err, "gemini: send message")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty candidates")
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok && strings.TrimSpace(string(txt)) != "" {
			parts = append(parts, string(txt))
		}
	}
	if len(parts) == 0 {
		return "", errors.New("gemini: empty text parts")
	}
	return strings.Join(parts, "\n"), nil
}
