package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"leadranker_backend/platform/ai/moonshot"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

const classifierAppName = "lead-classifier"

// Classifier scores inbound messages with an LLM and degrades to the
// deterministic fallback on any failure. Classify never returns an error:
// the scoring pipeline must not stall because the model misbehaved.
type Classifier struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	modelVersion   string
	cfg            config.AIConfig
	log            *logger.Logger
	runMu          sync.Mutex
}

// NewClassifier creates the lead classifier agent. Returns an error only on
// construction problems; a missing API key is handled at call time by the
// fallback path.
func NewClassifier(cfg config.AIConfig, log *logger.Logger) (*Classifier, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:          cfg.GetMoonshotAPIKey(),
		Model:           cfg.GetClassifierModel(),
		DisableThinking: true,
		JSONMode:        true,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "LeadClassifier",
		Model:       kimi,
		Description: "Scores inbound sales messages for lead quality and urgency.",
		Instruction: classifierSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lead classifier agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        classifierAppName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lead classifier runner: %w", err)
	}

	return &Classifier{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		modelVersion:   cfg.GetClassifierModel(),
		cfg:            cfg,
		log:            log,
	}, nil
}

// Classify scores one message. The returned verdict is always valid: model
// failures, timeouts, and malformed output all degrade to the fallback, and
// lexical signals in the message act as a monotone floor on the final score.
func (c *Classifier) Classify(ctx context.Context, input ClassifyInput) Verdict {
	verdict, err := c.classifyWithModel(ctx, input)
	if err != nil {
		c.log.ClassifierFallback(err.Error())
		verdict = FallbackVerdict(input.Message)
	}

	if verdict.IsLead {
		if floor := LexicalFloor(input.Message); verdict.Score < floor {
			verdict.Score = floor
		}
	}

	return verdict.Normalize()
}

func (c *Classifier) classifyWithModel(ctx context.Context, input ClassifyInput) (Verdict, error) {
	if c.cfg.GetMoonshotAPIKey() == "" {
		return Verdict{}, fmt.Errorf("classifier disabled: no API key")
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GetClassifierTimeout())
	defer cancel()

	sessionID := uuid.New().String()
	userID := "classifier-" + sessionID

	_, err := c.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   classifierAppName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier: create session: %w", err)
	}
	defer func() {
		_ = c.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   classifierAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildClassifierPrompt(input)}},
	}

	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var outputText strings.Builder
	for event, err := range c.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return Verdict{}, fmt.Errorf("classifier: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			outputText.WriteString(part.Text)
		}
	}

	verdict, err := ParseVerdict(outputText.String())
	if err != nil {
		return Verdict{}, err
	}
	verdict.ModelVersion = c.modelVersion
	verdict.Source = SourceModel

	return verdict, nil
}

// ParseVerdict decodes model output into a verdict, tolerating markdown code
// fences around the JSON object.
func ParseVerdict(raw string) (Verdict, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return Verdict{}, fmt.Errorf("classifier: empty model output")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("classifier: malformed verdict: %w", err)
	}

	if verdict.Score < 0 || verdict.Score > 100 {
		return Verdict{}, fmt.Errorf("classifier: score %d out of range", verdict.Score)
	}

	return verdict, nil
}

func buildClassifierPrompt(input ClassifyInput) string {
	industry := strings.TrimSpace(input.Industry)
	if industry == "" {
		industry = "general"
	}

	return fmt.Sprintf(`Tenant industry: %s

Inbound message:
%s

Classify the message and respond with the JSON object only.`, industry, strings.TrimSpace(input.Message))
}

const classifierSystemPrompt = `You are a lead qualification analyst for small businesses.
Judge whether an inbound message is a genuine sales lead and how urgent it is.

Respond with exactly one JSON object, no prose, in this shape:
{
  "is_lead": true or false,
  "urgency_score": integer 0-100,
  "sentiment": "positive" | "neutral" | "negative",
  "entities": {"budget": "...", "timeline": "...", "service": "..."},
  "recommendation": "one short next-step sentence for the sales team"
}

Scoring guidance:
- 80-100: explicit intent to buy soon, named budget or deadline.
- 50-79: real interest, but timing or budget unclear.
- 1-49: vague curiosity or early research.
- Spam, vendor pitches, and unrelated messages are not leads.
Omit entity keys you cannot fill. Keep the recommendation under 25 words.`
