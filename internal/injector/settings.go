package injector

import (
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/intent"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
)

// ConfigFromSettings resolves the configuration surface into a selector
// Config. Ranking values are applied as overrides on the ranker defaults
// and extra keywords extend the matcher defaults.
func ConfigFromSettings(s config.InjectionConfig) Config {
	k1, b, threshold, maxResults := s.K1, s.B, s.Threshold, s.MaxResults
	matching := intent.DefaultConfig().WithKeywords(s.IntentKeywords, s.NegationKeywords)
	matching.WordBoundary = s.WordBoundary
	matching.IntentDetection = s.IntentDetection
	matching.NegationDetection = s.NegationDetection

	return Config{
		RelevanceEnabled: s.RelevanceEnabled,
		Ranking: ranker.DefaultConfig().Apply(ranker.Overrides{
			K1:         &k1,
			B:          &b,
			Threshold:  &threshold,
			MaxResults: &maxResults,
		}),
		Matching: matching,
	}
}
