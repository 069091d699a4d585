package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
)

const (
	BackendOllama   = "ollama"
	BackendDeepSeek = "deepseek"
)

var backendAliases = map[string]string{
	"llama":       BackendOllama,
	"llama3":      BackendOllama,
	"ollama":      BackendOllama,
	"local":       BackendOllama,
	"deepseek":    BackendDeepSeek,
	"deepseek-r1": BackendDeepSeek,
	"r1":          BackendDeepSeek,
}

// ResolveBackend maps a backend alias to its canonical name. Blank and
// "none" select fallback.
func ResolveBackend(name, fallback string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "none" {
		n = strings.ToLower(strings.TrimSpace(fallback))
	}
	backend, ok := backendAliases[n]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedModel, "resolve llm backend", fmt.Errorf("unsupported model %q", n))
	}
	return backend, nil
}

// Dispatcher picks a generation backend per call from GenerationParams.Model.
type Dispatcher struct {
	backends       map[string]ports.Generator
	defaultBackend string
}

func NewDispatcher(defaultBackend string, backends map[string]ports.Generator) *Dispatcher {
	return &Dispatcher{
		backends:       backends,
		defaultBackend: defaultBackend,
	}
}

func (d *Dispatcher) Generate(ctx context.Context, messages []domain.Message, params domain.GenerationParams) (string, error) {
	backend, err := ResolveBackend(params.Model, d.defaultBackend)
	if err != nil {
		return "", err
	}
	gen, ok := d.backends[backend]
	if !ok || gen == nil {
		return "", domain.WrapError(domain.ErrConfiguration, "dispatch generation", fmt.Errorf("backend %q is not configured", backend))
	}
	params.Model = ""
	return gen.Generate(ctx, messages, params)
}
