package profile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kirillkom/storefront-assistant/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func seedClient(t *testing.T, root, client string) string {
	t.Helper()
	dir := filepath.Join(root, client)
	for _, purpose := range domain.RequiredTemplates {
		writeFile(t, filepath.Join(dir, promptsDir, string(purpose)+".txt"), "["+string(purpose)+"] {query}")
	}
	writeFile(t, filepath.Join(dir, metadataDir, filterableFile), "# most important first\ncategory\nprice\n\ncolor\nseason\n")
	writeFile(t, filepath.Join(dir, metadataDir, metadataFieldsFile), "name\ncategory\ncolor\nprice\n")
	writeFile(t, filepath.Join(dir, metadataDir, validValuesFile), `{"category": ["jacket", "dress"], "color": ["Blue", "Red"], "size": [38, 40]}`)
	return dir
}

func TestFileStoreLoadsProfileWithDefaults(t *testing.T) {
	root := t.TempDir()
	seedClient(t, root, "Demo.com")

	profile, err := NewFileStore(root).LoadProfile(context.Background(), "Demo.com")
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if err := profile.Validate(); err != nil {
		t.Fatalf("expected valid profile, got %v", err)
	}
	if profile.FAQCollection != "faq_demo_com" || profile.ProductCollection != "products_demo_com" {
		t.Fatalf("unexpected collections: %q %q", profile.FAQCollection, profile.ProductCollection)
	}
	if !reflect.DeepEqual(profile.FilterableFields, []string{"category", "price", "color", "season"}) {
		t.Fatalf("unexpected filterable fields: %+v", profile.FilterableFields)
	}
	if !reflect.DeepEqual(profile.RelaxationOrder, profile.FilterableFields) {
		t.Fatalf("expected relaxation order to default to the whitelist, got %+v", profile.RelaxationOrder)
	}
	if !reflect.DeepEqual(profile.ValidValues["size"], []string{"38", "40"}) {
		t.Fatalf("unexpected numeric vocabulary: %+v", profile.ValidValues["size"])
	}
	if !reflect.DeepEqual(profile.RangeFields, []string{"price"}) {
		t.Fatalf("unexpected range fields: %+v", profile.RangeFields)
	}
	if _, ok := profile.Templates[domain.TemplateFAQSynthesis]; ok {
		t.Fatalf("expected optional faq template to be absent")
	}
}

func TestFileStoreAppliesClientSettings(t *testing.T) {
	root := t.TempDir()
	dir := seedClient(t, root, "shop")
	writeFile(t, filepath.Join(dir, clientFile), `
faq_collection: shop_faq
product_collection: shop_products
relaxation_order: [category, color, price]
llm_backend: r1
`)

	profile, err := NewFileStore(root).LoadProfile(context.Background(), "shop")
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile.FAQCollection != "shop_faq" || profile.ProductCollection != "shop_products" || profile.LLMBackend != "r1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if !reflect.DeepEqual(profile.RelaxationOrder, []string{"category", "color", "price"}) {
		t.Fatalf("unexpected relaxation order: %+v", profile.RelaxationOrder)
	}
}

func TestFileStoreRejectsUnknownBackend(t *testing.T) {
	root := t.TempDir()
	dir := seedClient(t, root, "shop")
	writeFile(t, filepath.Join(dir, clientFile), "llm_backend: gpt-9\n")

	_, err := NewFileStore(root).LoadProfile(context.Background(), "shop")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFileStoreMissingVocabularyIsConfigurationError(t *testing.T) {
	root := t.TempDir()
	dir := seedClient(t, root, "shop")
	if err := os.Remove(filepath.Join(dir, metadataDir, validValuesFile)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err := NewFileStore(root).LoadProfile(context.Background(), "shop")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFileStoreClientErrors(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.LoadProfile(context.Background(), "absent.com"); !domain.IsKind(err, domain.ErrClientNotFound) {
		t.Fatalf("expected client not found, got %v", err)
	}
	if _, err := store.LoadProfile(context.Background(), "../etc"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadWordList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	writeFile(t, path, "The\na\nof\n\nand 123\nto\nin\n")

	words, err := LoadWordList(path, 2, 4)
	if err != nil {
		t.Fatalf("LoadWordList() error = %v", err)
	}
	if !reflect.DeepEqual(words, []string{"the", "of", "and"}) {
		t.Fatalf("unexpected words: %+v", words)
	}

	if _, err := LoadWordList(filepath.Join(t.TempDir(), "missing.txt"), 2, 10); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
