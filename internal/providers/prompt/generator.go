package prompt

import "context"

// Generator turns an encoded reference image and new content text into a
// single design prompt.
type Generator interface {
	Generate(ctx context.Context, imagePayload, content string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, imagePayload, content string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, imagePayload, content string) (string, error) {
	return f(ctx, imagePayload, content)
}
