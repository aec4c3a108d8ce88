// Package claude wraps the Anthropic SDK as an alternative grounded
// provider, using the hosted web-search tool with an approximate
// user-location anchor.
package claude

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 8192
)

// Client performs grounded content generation against the Anthropic API.
type Client interface {
	GenerateGrounded(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single grounded generation request. City/Region
// form the approximate location anchor for the web-search tool; Anthropic
// does not take exact coordinates.
type GenerateRequest struct {
	Prompt          string
	City            string
	Region          string
	Temperature     *float64
	MaxOutputTokens int
}

// GenerateResponse carries the model's raw text reply.
type GenerateResponse struct {
	Text string
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		if model != "" {
			c.model = model
		}
	}
}

type sdkClient struct {
	model  string
	client sdk.Client
}

// NewClient creates an Anthropic client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		model:  defaultModel,
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *sdkClient) GenerateGrounded(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	tool := sdk.WebSearchTool20250305Param{
		MaxUses: sdk.Int(5),
	}
	if req.City != "" {
		tool.UserLocation = sdk.WebSearchTool20250305UserLocationParam{
			City:   sdk.String(req.City),
			Region: sdk.String(req.Region),
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
		Tools: []sdk.ToolUnionParam{
			{OfWebSearchTool20250305: &tool},
		},
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "claude: create message")
	}

	out := &GenerateResponse{}
	for _, b := range msg.Content {
		if b.Type == "text" {
			out.Text += b.Text
		}
	}
	return out, nil
}
