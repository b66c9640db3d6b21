package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxRounds = 2

// ToolDispatcher is the part of the registry the orchestrator depends on.
type ToolDispatcher interface {
	Catalog() []ToolDescriptor
	Dispatch(ctx context.Context, req ToolRequest) ToolOutcome
}

// Orchestrator runs the model/tool loop for one query at a time: call the
// model with the catalog, dispatch the tool calls it asks for, feed the results
// back, and stop when it answers without tool calls. After MaxRounds dispatch
// rounds the model is called once more with tool choice "none".
type Orchestrator struct {
	LLM              LLM
	Tools            ToolDispatcher
	MaxRounds        int
	ParallelDispatch bool
	SystemPrompt     string
	ModelTimeout     time.Duration
	metrics          *Metrics
}

type OrchestratorOption func(*Orchestrator)

func WithMaxRounds(rounds int) OrchestratorOption {
	return func(o *Orchestrator) {
		if rounds >= 0 {
			o.MaxRounds = rounds
		}
	}
}

func WithParallelDispatch(parallel bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.ParallelDispatch = parallel
	}
}

func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.SystemPrompt = prompt
	}
}

func WithModelTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.ModelTimeout = timeout
	}
}

func WithOrchestratorMetrics(metrics *Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

func NewOrchestrator(llm LLM, tools ToolDispatcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		LLM:       llm,
		Tools:     tools,
		MaxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process answers a single query. Tool failures are folded into the transcript
// for the model to react to; only a failing model call aborts the query, as a
// *ModelCallError.
func (o *Orchestrator) Process(ctx context.Context, query string) (Answer, error) {
	var transcript []ChatMessage
	if o.SystemPrompt != "" {
		transcript = append(transcript, NewContent(RoleSystem, o.SystemPrompt))
	}
	transcript = append(transcript, NewContent(RoleUser, query))

	var stats Stats
	for round := 0; ; round++ {
		choice := ToolChoiceAuto
		if round >= o.MaxRounds {
			choice = ToolChoiceNone
		}

		output, err := o.generate(ctx, round, transcript, choice)
		if err != nil {
			return Answer{}, err
		}
		stats = stats.Add(output.Stats)

		message := output.Message
		message.Role = RoleAssistant
		if choice == ToolChoiceNone || len(message.ToolCalls) == 0 {
			if len(message.ToolCalls) > 0 {
				log.Warn().Int("round", round).Int("tool_calls", len(message.ToolCalls)).Msg("Ignoring tool calls past the round cap")
			}
			message.ToolCalls = nil
			transcript = append(transcript, message)
			return Answer{
				Text:       message.Content,
				Rounds:     round,
				Transcript: transcript,
				Stats:      stats,
			}, nil
		}

		transcript = append(transcript, message)
		for _, outcome := range o.dispatchRound(ctx, message.ToolCalls) {
			transcript = append(transcript, NewToolResultContent(outcome))
		}
	}
}

func (o *Orchestrator) generate(ctx context.Context, round int, transcript []ChatMessage, choice ToolChoice) (LLMOutput, error) {
	if o.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.ModelTimeout)
		defer cancel()
	}

	tools := o.Tools.Catalog()
	log.Debug().
		Int("round", round).
		Int("messages", len(transcript)).
		Int("tools", len(tools)).
		Str("tool_choice", string(choice)).
		Msg("Calling model")

	messages := make([]ChatMessage, len(transcript))
	copy(messages, transcript)

	start := time.Now()
	output, err := o.LLM.Generate(ctx, LLMInput{
		Messages:   messages,
		Tools:      tools,
		ToolChoice: choice,
	})
	o.metrics.observeModelCall(err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Int("round", round).Msg("Model call failed")
		return LLMOutput{}, &ModelCallError{Round: round, Cause: err}
	}
	return output, nil
}

// dispatchRound returns one outcome per call, in call order.
func (o *Orchestrator) dispatchRound(ctx context.Context, calls []ToolCall) []ToolOutcome {
	outcomes := make([]ToolOutcome, len(calls))
	if !o.ParallelDispatch {
		for i, call := range calls {
			outcomes[i] = o.invoke(ctx, call)
		}
		return outcomes
	}

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			outcomes[i] = o.invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) invoke(ctx context.Context, call ToolCall) ToolOutcome {
	log.Info().Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("Calling tool")
	req, err := DecodeToolCall(call)
	if err != nil {
		log.Error().Err(err).Str("tool", call.Name).Msg("Error processing tool call")
		return FailedOutcome(call.ID, call.Name, err.Error())
	}
	return o.Tools.Dispatch(ctx, req)
}
