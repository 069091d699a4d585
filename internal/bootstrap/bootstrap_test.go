package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kirillkom/storefront-assistant/internal/config"
)

func TestResilienceConfigFollowsEnvironment(t *testing.T) {
	cfg := config.Config{
		LLMTimeout:                    45 * time.Second,
		ResilienceBreakerEnabled:      false,
		ResilienceBreakerMinRequests:  4,
		ResilienceBreakerFailureRatio: 0.25,
		ResilienceBreakerOpenTimeout:  5 * time.Second,
	}

	got := resilienceConfig(cfg)
	if got.CallTimeout != 45*time.Second || got.BreakerEnabled || got.BreakerMinRequests != 4 {
		t.Fatalf("unexpected resilience config: %+v", got)
	}
	if got.RetryMaxAttempts != 1 {
		t.Fatalf("expected pipeline calls to run once, got %d attempts", got.RetryMaxAttempts)
	}
}

func TestLoadCorrectorDisablesOnMissingWordList(t *testing.T) {
	cfg := config.Config{SpellDictionaryPath: filepath.Join(t.TempDir(), "missing.txt"), SpellMinWordLength: 2}
	if c := loadCorrector(cfg); c.Enabled() {
		t.Fatalf("expected corrector to be disabled")
	}
}

func TestLoadCorrectorReadsWordList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("the\nhours\njackets\n"), 0o644); err != nil {
		t.Fatalf("write word list: %v", err)
	}

	c := loadCorrector(config.Config{SpellDictionaryPath: path, SpellMinWordLength: 2, SpellMaxWords: 100})
	if !c.Enabled() {
		t.Fatalf("expected corrector to be enabled")
	}
	if got := c.Correct("weekend houts"); got != "weekend hours" {
		t.Fatalf("unexpected correction %q", got)
	}
}
