package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

// routerSystemPrompt must stay free of braces; it is an FString template.
const routerSystemPrompt = "You are an intent router for a voice shopping assistant. Follow the instructions in the user message and reply with JSON only."

// EinoInferer runs the prompt through a chat template and chat model graph.
type EinoInferer struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Inferer = (*EinoInferer)(nil)

func NewEinoInferer(ctx context.Context, chatModel einomodel.BaseChatModel) (*EinoInferer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	runner, err := compileInferenceGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &EinoInferer{runner: runner}, nil
}

func (e *EinoInferer) Infer(ctx context.Context, prompt string) (string, error) {
	msg, err := e.runner.Invoke(ctx, map[string]any{
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty classifier response", contractx.ErrSchemaViolation)
	}
	return msg.Content, nil
}

func compileInferenceGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(routerSystemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add classifier prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add classifier model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add classifier edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add classifier edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add classifier edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("classifier.inference_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile classifier inference graph: %w", err)
	}
	return runner, nil
}

// OpenAIInferer calls the chat completions API directly.
type OpenAIInferer struct {
	client    *openaisdk.Client
	model     string
	maxTokens int64
}

var _ contractx.Inferer = (*OpenAIInferer)(nil)

func NewOpenAIInferer(client *openaisdk.Client, model string, maxTokens int) (*OpenAIInferer, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &OpenAIInferer{client: client, model: strings.TrimSpace(model), maxTokens: int64(maxTokens)}, nil
}

func (o *OpenAIInferer) Infer(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(o.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(routerSystemPrompt),
			openaisdk.UserMessage(prompt),
		},
		Temperature:         openaisdk.Float(0),
		MaxCompletionTokens: openaisdk.Int(o.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion has no choices", contractx.ErrSchemaViolation)
	}
	return resp.Choices[0].Message.Content, nil
}
