package domain

import "strings"

// TraitCategory is the semantic category resolved for a trait collection.
type TraitCategory string

// Trait categories recognised by the classifier.
const (
	CategoryHair      TraitCategory = "hair"
	CategoryEyewear   TraitCategory = "eyewear"
	CategoryEyebrows  TraitCategory = "eyebrows"
	CategoryEyes      TraitCategory = "eyes"
	CategoryMouth     TraitCategory = "mouth"
	CategoryClothing  TraitCategory = "clothing"
	CategoryFootwear  TraitCategory = "footwear"
	CategoryJewelry   TraitCategory = "jewelry"
	CategoryAccessory TraitCategory = "accessory"
)

// Anchor names one of the character reference points traits snap to.
type Anchor string

// Character anchor points. Head anchors derive from the head geometry
// bounds, body anchors from the armature bounds.
const (
	AnchorHeadCenter  Anchor = "head-center"
	AnchorHeadTop     Anchor = "head-top"
	AnchorForehead    Anchor = "forehead"
	AnchorEyeLevel    Anchor = "eye-level"
	AnchorMouthLevel  Anchor = "mouth-level"
	AnchorFaceForward Anchor = "face-forward"
	AnchorBodyCenter  Anchor = "body-center"
	AnchorChestLevel  Anchor = "chest-level"
	AnchorWaistLevel  Anchor = "waist-level"
	AnchorFeetLevel   Anchor = "feet-level"
)

// ReferencePoints maps anchors to world-space positions for one
// normalization pass. Recomputed per pass, never cached.
type ReferencePoints map[Anchor]Vec3

// FallbackReferencePoints returns the documented fixed anchors used when
// the character's head or body geometry is absent. Positions assume a
// roughly 1.8-unit standing character at the origin.
func FallbackReferencePoints() ReferencePoints {
	return ReferencePoints{
		AnchorHeadCenter:  {0, 0, 1.70},
		AnchorHeadTop:     {0, 0, 1.85},
		AnchorForehead:    {0, -0.05, 1.75},
		AnchorEyeLevel:    {0, -0.05, 1.70},
		AnchorMouthLevel:  {0, -0.05, 1.65},
		AnchorFaceForward: {0, -0.10, 1.70},
		AnchorBodyCenter:  {0, 0, 0.90},
		AnchorChestLevel:  {0, 0, 1.10},
		AnchorWaistLevel:  {0, 0, 0.90},
		AnchorFeetLevel:   {0, 0, 0},
	}
}

// ClassificationRule matches a trait collection name to a category and its
// target anchor. Keywords are matched as lowercase substrings; a hit on any
// Exclude keyword vetoes the rule and evaluation moves on.
type ClassificationRule struct {
	Category TraitCategory
	Anchor   Anchor
	Keywords []string
	Exclude  []string
}

// Matches reports whether the rule applies to the lowercased name.
func (r ClassificationRule) Matches(lower string) bool {
	for _, ex := range r.Exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DefaultClassificationRules returns the classifier priority list. Order is
// the contract: rules are evaluated top to bottom and the first match wins,
// so overlapping keywords (an "eye_patch" matches the eye rule, not the
// eyewear rule, because no eyewear keyword appears in its name) resolve
// deterministically. Names with no keyword hit fall through to the
// accessory default.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{Category: CategoryHair, Anchor: AnchorHeadTop, Keywords: []string{"hair"}},
		{Category: CategoryEyewear, Anchor: AnchorFaceForward, Keywords: []string{"eyewear", "glasses", "goggles", "sunglass"}},
		{Category: CategoryEyebrows, Anchor: AnchorForehead, Keywords: []string{"eyebrow", "brow"}},
		{Category: CategoryEyes, Anchor: AnchorEyeLevel, Keywords: []string{"eye", "iris", "pupil"}, Exclude: []string{"eyewear"}},
		{Category: CategoryMouth, Anchor: AnchorMouthLevel, Keywords: []string{"mouth", "lip", "teeth"}},
		{Category: CategoryClothing, Anchor: AnchorBodyCenter, Keywords: []string{"clothing", "shirt", "jacket", "coat", "top", "bottom", "pants", "dress"}},
		{Category: CategoryFootwear, Anchor: AnchorFeetLevel, Keywords: []string{"shoe", "boot", "footwear", "sneaker", "sandal"}},
		{Category: CategoryJewelry, Anchor: AnchorChestLevel, Keywords: []string{"jewelry", "necklace", "earring", "ring", "chain", "pendant"}},
	}
}

// Classifier resolves trait collection names against an ordered rule list.
type Classifier struct {
	rules []ClassificationRule
}

// NewClassifier builds a classifier over the given priority list; a nil or
// empty list falls back to the defaults.
func NewClassifier(rules []ClassificationRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultClassificationRules()
	}
	return &Classifier{rules: append([]ClassificationRule(nil), rules...)}
}

// Rules returns a copy of the active priority list.
func (c *Classifier) Rules() []ClassificationRule {
	return append([]ClassificationRule(nil), c.rules...)
}

// Classify resolves the collection name to a category and target anchor.
// Unmatched names classify as accessory at the chest anchor.
func (c *Classifier) Classify(name string) (TraitCategory, Anchor) {
	lower := strings.ToLower(name)
	for _, rule := range c.rules {
		if rule.Matches(lower) {
			return rule.Category, rule.Anchor
		}
	}
	return CategoryAccessory, AnchorChestLevel
}
