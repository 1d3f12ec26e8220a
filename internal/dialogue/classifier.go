package dialogue

import (
	"fmt"
	"regexp"
	"strings"
)

type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

type signalRule struct {
	signal   BuyingSignal
	patterns []*regexp.Regexp
}

type propertyTypeRule struct {
	ptype PropertyType
	re    *regexp.Regexp
}

type locationRule struct {
	name string
	re   *regexp.Regexp
}

// Classifier runs the generic first-match algorithm over a compiled Vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	intents       []intentRule
	signals       []signalRule
	propertyTypes []propertyTypeRule
	locations     []locationRule
	rental        *regexp.Regexp
	sale          *regexp.Regexp
}

var defaultClassifier = MustClassifier(DefaultVocabulary())

// Default returns the classifier built from DefaultVocabulary.
func Default() *Classifier {
	return defaultClassifier
}

// NewClassifier compiles a vocabulary.
func NewClassifier(v Vocabulary) (*Classifier, error) {
	c := &Classifier{}
	for _, entry := range v.Intents {
		rule := intentRule{intent: entry.Intent}
		for _, expr := range entry.Patterns {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("dialogue: intent %s pattern %q: %w", entry.Intent, expr, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		c.intents = append(c.intents, rule)
	}
	for _, entry := range v.Signals {
		rule := signalRule{signal: entry.Signal}
		for _, expr := range entry.Patterns {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("dialogue: signal %s pattern %q: %w", entry.Signal, expr, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		c.signals = append(c.signals, rule)
	}
	for _, entry := range v.PropertyTypes {
		if len(entry.Synonyms) == 0 {
			continue
		}
		c.propertyTypes = append(c.propertyTypes, propertyTypeRule{
			ptype: entry.Type,
			re:    keywordPattern(entry.Synonyms),
		})
	}
	for _, loc := range v.Locations {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc == "" {
			continue
		}
		c.locations = append(c.locations, locationRule{
			name: loc,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(loc) + `\b`),
		})
	}
	if len(v.RentalKeywords) > 0 {
		c.rental = keywordPattern(v.RentalKeywords)
	}
	if len(v.SaleKeywords) > 0 {
		c.sale = keywordPattern(v.SaleKeywords)
	}
	return c, nil
}

// MustClassifier is NewClassifier that panics on an invalid vocabulary.
func MustClassifier(v Vocabulary) *Classifier {
	c, err := NewClassifier(v)
	if err != nil {
		panic(err)
	}
	return c
}

// keywordPattern matches any keyword as a whole word, allowing common inflections
// ("flats", "renting", "invested") but not unrelated words sharing a prefix ("landlord").
func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)(?:s|es|d|ed|ing|al)?\b`)
}

// Classify returns the first intent, in table order, with any matching pattern.
func (c *Classifier) Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range c.intents {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				return rule.intent
			}
		}
	}
	return IntentUnknown
}

// DetectSignals flags each signal type at most once, in table order.
func (c *Classifier) DetectSignals(text string) []BuyingSignal {
	lower := strings.ToLower(text)
	var signals []BuyingSignal
	for _, rule := range c.signals {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				signals = append(signals, rule.signal)
				break
			}
		}
	}
	return signals
}

// Classify uses the default vocabulary.
func Classify(text string) Intent {
	return defaultClassifier.Classify(text)
}

// DetectSignals uses the default vocabulary.
func DetectSignals(text string) []BuyingSignal {
	return defaultClassifier.DetectSignals(text)
}
