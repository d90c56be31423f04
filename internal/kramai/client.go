// Package kramai wraps the OpenAI SDK behind a small client exposing the
// two calls the generation pipeline needs: image generation and chat
// completion. Errors come back classified (see errors.go) so callers never
// inspect message strings.
package kramai

import (
	"context"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client is constructed once in main and passed to the orchestrator.
type Client struct {
	api openai.Client
}

// New builds a client. baseURL may be empty for the default endpoint.
func New(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...)}
}

// ImageResult is the outcome of one image generation call.
type ImageResult struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// GenerateImage runs one dall-e-3 generation and returns the hosted URL.
func (c *Client) GenerateImage(ctx context.Context, promptText string, opts ImageOptions) (ImageResult, error) {
	opts = opts.withDefaults()

	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         promptText,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(opts.Size),
		Quality:        openai.ImageGenerateParamsQuality(opts.Quality),
		Style:          openai.ImageGenerateParamsStyle(opts.Style),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return ImageResult{}, classify("generate image", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return ImageResult{}, &Error{Kind: KindTransient, Op: "generate image", Err: errNoImage}
	}
	return ImageResult{URL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

// Complete runs one chat completion. When imageURL is non-empty the user
// message carries the image as a vision content part, so the model can
// describe the artifact it is looking at.
func (c *Client) Complete(ctx context.Context, system, user, imageURL string, opts ChatOptions) (string, error) {
	opts = opts.withDefaults()

	userParts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: user}},
	}
	if imageURL != "" {
		userParts = append(userParts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: "auto",
				},
			},
		})
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(opts.Model),
		MaxTokens: openai.Int(int64(opts.MaxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: userParts,
					},
				},
			},
		},
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindTransient, Op: "chat completion", Err: errNoChoices}
	}
	return trimFences(resp.Choices[0].Message.Content), nil
}

// trimFences removes a markdown code fence the model sometimes wraps
// its answer in.
func trimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json\n")
	s = strings.TrimPrefix(s, "```\n")
	s = strings.TrimSuffix(s, "\n```")
	return strings.TrimSpace(s)
}
