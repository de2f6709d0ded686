package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIError classifies a go-openai failure. Errors without an HTTP status
// are network failures and count as transient.
func OpenAIError(stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == 0 {
		return Transient(Wrap(ErrExternalTool, stage, "openai", "", err))
	}
	return fmt.Errorf("%w: %w", StatusError(stage, "openai", status, ""), err)
}
