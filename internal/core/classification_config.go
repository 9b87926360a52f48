package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clonecore/pkg/domain"
)

// knownCategories and knownAnchors validate the YAML override file. A rule
// naming anything outside these sets is a structural error, not a fallback.
var knownCategories = map[TraitCategory]struct{}{
	domain.CategoryHair:      {},
	domain.CategoryEyewear:   {},
	domain.CategoryEyebrows:  {},
	domain.CategoryEyes:      {},
	domain.CategoryMouth:     {},
	domain.CategoryClothing:  {},
	domain.CategoryFootwear:  {},
	domain.CategoryJewelry:   {},
	domain.CategoryAccessory: {},
}

var knownAnchors = map[Anchor]struct{}{
	domain.AnchorHeadCenter:  {},
	domain.AnchorHeadTop:     {},
	domain.AnchorForehead:    {},
	domain.AnchorEyeLevel:    {},
	domain.AnchorMouthLevel:  {},
	domain.AnchorFaceForward: {},
	domain.AnchorBodyCenter:  {},
	domain.AnchorChestLevel:  {},
	domain.AnchorWaistLevel:  {},
	domain.AnchorFeetLevel:   {},
}

type classificationRuleConfig struct {
	Category string   `yaml:"category"`
	Anchor   string   `yaml:"anchor"`
	Keywords []string `yaml:"keywords"`
	Exclude  []string `yaml:"exclude"`
}

type classificationFile struct {
	Rules []classificationRuleConfig `yaml:"rules"`
}

// LoadClassificationRules parses a YAML priority list. File order becomes
// evaluation order, so operators can pin dispatch without a rebuild.
func LoadClassificationRules(path string) ([]ClassificationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file classificationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}

	rules := make([]ClassificationRule, 0, len(file.Rules))
	for i, rc := range file.Rules {
		category := TraitCategory(rc.Category)
		if _, ok := knownCategories[category]; !ok {
			return nil, fmt.Errorf("rules file %s: rule %d: unknown category %q", path, i+1, rc.Category)
		}
		anchor := Anchor(rc.Anchor)
		if _, ok := knownAnchors[anchor]; !ok {
			return nil, fmt.Errorf("rules file %s: rule %d: unknown anchor %q", path, i+1, rc.Anchor)
		}
		if len(rc.Keywords) == 0 && category != domain.CategoryAccessory {
			return nil, fmt.Errorf("rules file %s: rule %d: no keywords", path, i+1)
		}
		rules = append(rules, ClassificationRule{
			Category: category,
			Anchor:   anchor,
			Keywords: rc.Keywords,
			Exclude:  rc.Exclude,
		})
	}
	return rules, nil
}

// ClassifierFromEnv builds the classifier from CLONECORE_RULES_FILE when
// set, otherwise the built-in priority list.
func ClassifierFromEnv() (*Classifier, error) {
	path := os.Getenv("CLONECORE_RULES_FILE")
	if path == "" {
		return domain.NewClassifier(nil), nil
	}
	rules, err := LoadClassificationRules(path)
	if err != nil {
		return nil, err
	}
	return domain.NewClassifier(rules), nil
}
