package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"bigocheck/internal/config"
	"bigocheck/internal/models"
	"bigocheck/internal/pyparse"
)

var (
	// ErrRemoteUnavailable means no usable remote endpoint: missing
	// credential at construction time, or a transport/API failure.
	ErrRemoteUnavailable = errors.New("remote classifier unavailable")
	// ErrRemoteTimeout means the bounded wait for the round trip expired.
	ErrRemoteTimeout = errors.New("remote classifier timed out")
	// ErrRemoteMalformed means the reply could not be parsed into the
	// closed class set.
	ErrRemoteMalformed = errors.New("remote classifier returned a malformed reply")
)

const remoteSystemPrompt = `You are a static analysis assistant. Given one Python function, estimate its asymptotic time and space complexity.
Reply with a single JSON object and nothing else:
{"big_o": "<time class>", "space_complexity": "<space class>"}
big_o must be exactly one of: O(1), O(log n), O(sqrt n), O(n), O(n log n), O(n^2), O(n^3), O(2^n), O(n!), unknown.
space_complexity must be exactly one of: O(1), O(log n), O(sqrt n), O(n), O(n log n), O(n^2), unknown.`

// RemoteClassifier defers the complexity judgment to an OpenAI-compatible
// chat model. One round trip per function, no retries; every failure is
// typed so the orchestrator can fall back.
type RemoteClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewRemoteClassifier builds a classifier from the remote config block.
// A missing credential returns ErrRemoteUnavailable; callers treat that
// as "heuristic-only mode", not as a user-facing error.
func NewRemoteClassifier(cfg config.RemoteConfig) (*RemoteClassifier, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrRemoteUnavailable, cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultRemoteModel
		slog.Warn("remote model not set, using default", "model", model)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultRemoteTimeout
	}

	return &RemoteClassifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
	}, nil
}

func (r *RemoteClassifier) Name() string { return "remote" }

func (r *RemoteClassifier) Classify(ctx context.Context, fn pyparse.FunctionUnit, profile SignalProfile) (models.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	slog.Debug("classifying via remote model", "function", fn.Name, "model", r.model)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: remoteSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(fn.Source)},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Verdict{}, fmt.Errorf("%w after %s: %v", ErrRemoteTimeout, r.timeout, err)
		}
		if ctx.Err() != nil {
			return models.Verdict{}, fmt.Errorf("%w: %v", ErrRemoteTimeout, ctx.Err())
		}
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return models.Verdict{}, fmt.Errorf("%w: empty choice list", ErrRemoteMalformed)
	}

	timeClass, spaceClass, err := parseRemoteReply(resp.Choices[0].Message.Content)
	if err != nil {
		return models.Verdict{}, err
	}

	// The remote judges classes only; structural echoes stay local.
	return models.Verdict{
		Function:   fn.Name,
		TimeClass:  timeClass,
		SpaceClass: spaceClass,
		Source:     models.SourceRemote,
		Loops:      profile.MaxLoopDepth,
		Recursion:  profile.RecursiveCalls,
		EarlyExit:  profile.HasEarlyTermination,
	}, nil
}

// parseRemoteReply validates the model output against the closed class
// set. Any label outside it is a failure, never silently accepted.
func parseRemoteReply(content string) (models.Class, models.Class, error) {
	var reply struct {
		BigO  string `json:"big_o"`
		Space string `json:"space_complexity"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &reply); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRemoteMalformed, err)
	}

	timeClass, ok := models.ParseClass(reply.BigO)
	if !ok {
		return 0, 0, fmt.Errorf("%w: time label %q", ErrRemoteMalformed, reply.BigO)
	}

	spaceClass := models.ClassConstant
	if reply.Space != "" {
		spaceClass, ok = models.ParseClass(reply.Space)
		if !ok || !spaceClass.IsSpaceClass() {
			return 0, 0, fmt.Errorf("%w: space label %q", ErrRemoteMalformed, reply.Space)
		}
	}
	return timeClass, spaceClass, nil
}

// stripCodeFence unwraps replies the model insists on fencing.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
