package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if len(c.Server.APIKeys) == 0 {
		errors = append(errors, ValidationError{
			Field:   "server.api_keys",
			Message: "at least one client API key is required",
		})
	}
	for _, key := range c.Server.APIKeys {
		if key == "" {
			errors = append(errors, ValidationError{
				Field:   "server.api_keys",
				Message: "API keys must not be empty",
			})
			break
		}
	}

	if c.Server.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit",
			Message: "rate_limit must be positive",
		})
	}
	if c.Server.RateBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_burst",
			Message: "rate_burst must be positive",
		})
	}

	if c.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.api_key",
			Message: "OpenAI API key is required",
		})
	}
	if c.OpenAI.BaseURL != "" {
		if _, err := url.Parse(c.OpenAI.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "openai.base_url",
				Message: "invalid OpenAI base URL",
			})
		}
	}

	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Ingest.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}
	if c.Ingest.WindowSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.window_size",
			Message: "window_size must be positive",
		})
	}
	if c.Ingest.Overlap < 0 || c.Ingest.Overlap >= c.Ingest.WindowSize {
		errors = append(errors, ValidationError{
			Field:   "ingest.overlap",
			Message: "overlap must be non-negative and less than window_size",
		})
	}

	if c.Query.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "query.top_k",
			Message: "top_k must be positive",
		})
	}
	if c.Query.MaxTokens < 1 || c.Query.MaxTokens > 16384 {
		errors = append(errors, ValidationError{
			Field:   "query.max_tokens",
			Message: "max_tokens must be between 1 and 16384",
		})
	}
	if c.Query.Temperature < 0 || c.Query.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "query.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	return errors
}
