package core_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clonecore/internal/core"
	"clonecore/pkg/domain"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}

func TestLoadClassificationRulesOverridesPriority(t *testing.T) {
	path := writeRulesFile(t, `rules:
  - category: jewelry
    anchor: chest-level
    keywords: [hairpin]
  - category: hair
    anchor: head-top
    keywords: [hair]
  - category: eyes
    anchor: eye-level
    keywords: [eye]
    exclude: [eyewear]
`)

	rules, err := core.LoadClassificationRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[0].Category != domain.CategoryJewelry || rules[0].Keywords[0] != "hairpin" {
		t.Fatalf("rule order not preserved: %+v", rules[0])
	}

	classifier := domain.NewClassifier(rules)
	// File order wins: the hairpin rule outranks the hair rule even though
	// both keywords appear in the name.
	category, anchor := classifier.Classify("f_gold_hairpin")
	if category != domain.CategoryJewelry || anchor != domain.AnchorChestLevel {
		t.Fatalf("hairpin classified as %s/%s", category, anchor)
	}
	category, anchor = classifier.Classify("f_long_hair")
	if category != domain.CategoryHair || anchor != domain.AnchorHeadTop {
		t.Fatalf("hair classified as %s/%s", category, anchor)
	}
	if category, _ := classifier.Classify("m_round_eyewear"); category == domain.CategoryEyes {
		t.Fatal("exclude list ignored: eyewear matched the eyes rule")
	}
}

func TestLoadClassificationRulesRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown category",
			content: "rules:\n  - category: hats\n    anchor: head-top\n    keywords: [hat]\n",
			wantErr: "unknown category",
		},
		{
			name:    "unknown anchor",
			content: "rules:\n  - category: hair\n    anchor: scalp\n    keywords: [hair]\n",
			wantErr: "unknown anchor",
		},
		{
			name:    "missing keywords",
			content: "rules:\n  - category: hair\n    anchor: head-top\n",
			wantErr: "no keywords",
		},
		{
			name:    "empty rule list",
			content: "rules: []\n",
			wantErr: "defines no rules",
		},
		{
			name:    "malformed yaml",
			content: "rules: [un{closed",
			wantErr: "parse rules file",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeRulesFile(t, tc.content)
			_, err := core.LoadClassificationRules(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadClassificationRulesAllowsKeywordlessAccessoryCatchAll(t *testing.T) {
	path := writeRulesFile(t, `rules:
  - category: hair
    anchor: head-top
    keywords: [hair]
  - category: accessory
    anchor: waist-level
`)

	rules, err := core.LoadClassificationRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[1].Category != domain.CategoryAccessory || len(rules[1].Keywords) != 0 {
		t.Fatalf("catch-all rule mangled: %+v", rules[1])
	}
}

func TestClassifierFromEnv(t *testing.T) {
	t.Setenv("CLONECORE_RULES_FILE", "")
	classifier, err := core.ClassifierFromEnv()
	if err != nil {
		t.Fatalf("default classifier: %v", err)
	}
	if category, _ := classifier.Classify("f_long_hair"); category != domain.CategoryHair {
		t.Fatalf("default rules missing, hair classified as %s", category)
	}

	path := writeRulesFile(t, `rules:
  - category: footwear
    anchor: feet-level
    keywords: [hair]
`)
	t.Setenv("CLONECORE_RULES_FILE", path)
	classifier, err = core.ClassifierFromEnv()
	if err != nil {
		t.Fatalf("env classifier: %v", err)
	}
	// The override deliberately sends hair to the feet so the file taking
	// effect is unmistakable.
	if category, _ := classifier.Classify("f_long_hair"); category != domain.CategoryFootwear {
		t.Fatalf("override not applied, classified as %s", category)
	}

	t.Setenv("CLONECORE_RULES_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := core.ClassifierFromEnv(); err == nil {
		t.Fatal("missing rules file must error, not fall back silently")
	}
}
