package profile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/llm"
)

const (
	clientFile         = "client.yaml"
	promptsDir         = "system_prompts"
	metadataDir        = "product_metadata"
	filterableFile     = "filter_on_list.txt"
	metadataFieldsFile = "metadata_fields_list.txt"
	validValuesFile    = "all_valid_metadata_values.json"
)

// clientSettings mirrors client.yaml. Every key is optional.
type clientSettings struct {
	FAQCollection     string   `yaml:"faq_collection"`
	ProductCollection string   `yaml:"product_collection"`
	RangeFields       []string `yaml:"range_fields"`
	RelaxationOrder   []string `yaml:"relaxation_order"`
	LLMBackend        string   `yaml:"llm_backend"`
}

// FileStore loads client profiles from <root>/<client>/.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) LoadProfile(_ context.Context, clientID string) (*domain.ClientProfile, error) {
	dir, err := s.clientDir(clientID)
	if err != nil {
		return nil, err
	}

	settings, err := readSettings(filepath.Join(dir, clientFile))
	if err != nil {
		return nil, err
	}
	if settings.LLMBackend != "" {
		if _, err := llm.ResolveBackend(settings.LLMBackend, ""); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "load client settings", err)
		}
	}

	templates, err := readTemplates(filepath.Join(dir, promptsDir))
	if err != nil {
		return nil, err
	}

	filterable, err := readList(filepath.Join(dir, metadataDir, filterableFile))
	if err != nil {
		return nil, err
	}
	metadataFields, err := readList(filepath.Join(dir, metadataDir, metadataFieldsFile))
	if err != nil {
		return nil, err
	}
	validText, validValues, err := readValidValues(filepath.Join(dir, metadataDir, validValuesFile))
	if err != nil {
		return nil, err
	}

	relaxation := settings.RelaxationOrder
	if len(relaxation) == 0 {
		relaxation = filterable
	}
	rangeFields := settings.RangeFields
	if rangeFields == nil {
		rangeFields = []string{"price"}
	}

	return &domain.ClientProfile{
		ClientID:          clientID,
		FAQCollection:     firstNonEmpty(settings.FAQCollection, "faq_"+collectionSuffix(clientID)),
		ProductCollection: firstNonEmpty(settings.ProductCollection, "products_"+collectionSuffix(clientID)),
		Templates:         templates,
		FilterableFields:  filterable,
		RelaxationOrder:   relaxation,
		MetadataFields:    metadataFields,
		ValidValues:       validValues,
		ValidValuesText:   validText,
		RangeFields:       rangeFields,
		LLMBackend:        settings.LLMBackend,
	}, nil
}

func (s *FileStore) clientDir(clientID string) (string, error) {
	id := strings.TrimSpace(clientID)
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve client dir", fmt.Errorf("invalid client id %q", clientID))
	}
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", domain.WrapError(domain.ErrClientNotFound, "resolve client dir", fmt.Errorf("client %q has no directory under %s", id, s.root))
	}
	return dir, nil
}

func readSettings(path string) (clientSettings, error) {
	var settings clientSettings
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return settings, domain.WrapError(domain.ErrConfiguration, "parse client settings", err)
	}
	return settings, nil
}

func readTemplates(dir string) (map[domain.TemplatePurpose]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "read prompt templates", err)
	}
	out := make(map[domain.TemplatePurpose]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		out[domain.TemplatePurpose(strings.TrimSuffix(entry.Name(), ".txt"))] = string(raw)
	}
	return out, nil
}

// readList reads one item per line; blank lines and # comments are skipped.
func readList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "read "+filepath.Base(path), err)
	}
	out := make([]string, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}

func readValidValues(path string) (string, map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrConfiguration, "read value vocabulary", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", nil, domain.WrapError(domain.ErrConfiguration, "parse value vocabulary", err)
	}

	values := make(map[string][]string, len(parsed))
	for field, v := range parsed {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		items := make([]string, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
		values[field] = items
	}
	return strings.TrimSpace(string(raw)), values, nil
}

func collectionSuffix(clientID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, clientID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
