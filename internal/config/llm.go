package config

// LLMConfig configures the completion-loop model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, anthropic, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding provider used by the project
// index (C2) to compute per-entry embedding vectors.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai
	OllamaEndpoint string `yaml:"ollama_endpoint,omitempty"`
	OllamaModel    string `yaml:"ollama_model,omitempty"`
	GenAIAPIKey    string `yaml:"genai_api_key,omitempty"`
	GenAIModel     string `yaml:"genai_model,omitempty"`
	TaskType       string `yaml:"task_type,omitempty"`
}
