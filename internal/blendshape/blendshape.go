// Package blendshape canonicalizes facial shape-key names to the ARKit
// convention. Imported meshes arrive with vendor-mangled key names like
// "Face.eyeBlinkLeft_0" or "EYEBLINKLEFT"; downstream face tracking expects
// the exact ARKit names.
package blendshape

import (
	"sort"
	"strings"
)

// canonical maps lowercase search substrings to ARKit shape names. The 52
// entries cover the full ARKit face blendshape set.
var canonical = map[string]string{
	"browdownleft":        "BrowDownLeft",
	"browdownright":       "BrowDownRight",
	"browinnerup":         "BrowInnerUp",
	"browouterupleft":     "BrowOuterUpLeft",
	"browouterupright":    "BrowOuterUpRight",
	"cheekpuff":           "CheekPuff",
	"cheeksquintleft":     "CheekSquintLeft",
	"cheeksquintright":    "CheekSquintRight",
	"eyeblinkleft":        "EyeBlinkLeft",
	"eyeblinkright":       "EyeBlinkRight",
	"eyelookdownleft":     "EyeLookDownLeft",
	"eyelookdownright":    "EyeLookDownRight",
	"eyelookinleft":       "EyeLookInLeft",
	"eyelookinright":      "EyeLookInRight",
	"eyelookoutleft":      "EyeLookOutLeft",
	"eyelookoutright":     "EyeLookOutRight",
	"eyelookupleft":       "EyeLookUpLeft",
	"eyelookupright":      "EyeLookUpRight",
	"eyesquintleft":       "EyeSquintLeft",
	"eyesquintright":      "EyeSquintRight",
	"eyewideleft":         "EyeWideLeft",
	"eyewideright":        "EyeWideRight",
	"jawforward":          "JawForward",
	"jawleft":             "JawLeft",
	"jawopen":             "JawOpen",
	"jawright":            "JawRight",
	"mouthclose":          "MouthClose",
	"mouthdimpleleft":     "MouthDimpleLeft",
	"mouthdimpleright":    "MouthDimpleRight",
	"mouthfrownleft":      "MouthFrownLeft",
	"mouthfrownright":     "MouthFrownRight",
	"mouthfunnel":         "MouthFunnel",
	"mouthleft":           "MouthLeft",
	"mouthlowerdownleft":  "MouthLowerDownLeft",
	"mouthlowerdownright": "MouthLowerDownRight",
	"mouthpressleft":      "MouthPressLeft",
	"mouthpressright":     "MouthPressRight",
	"mouthpucker":         "MouthPucker",
	"mouthright":          "MouthRight",
	"mouthrolllower":      "MouthRollLower",
	"mouthrollupper":      "MouthRollUpper",
	"mouthshruglower":     "MouthShrugLower",
	"mouthshrugupper":     "MouthShrugUpper",
	"mouthsmileleft":      "MouthSmileLeft",
	"mouthsmileright":     "MouthSmileRight",
	"mouthstretchleft":    "MouthStretchLeft",
	"mouthstretchright":   "MouthStretchRight",
	"nosesneerleft":       "NoseSneerLeft",
	"nosesneerright":      "NoseSneerRight",
	"tongueout":           "TongueOut",
	"mouthupperupleft":    "MouthUpperUpLeft",
	"mouthupperupright":   "MouthUpperUpRight",
}

// searchOrder lists search substrings longest first so a name containing
// both "mouthlowerdownleft" and a shorter overlapping key resolves to the
// more specific shape. Equal lengths order alphabetically for determinism.
var searchOrder = func() []string {
	keys := make([]string, 0, len(canonical))
	for k := range canonical {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Canonical resolves a shape-key name to its ARKit canonical form by
// case-insensitive substring match. The match replaces the whole name.
func Canonical(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, key := range searchOrder {
		if strings.Contains(lower, key) {
			return canonical[key], true
		}
	}
	return "", false
}

// RenamePlan maps each name that should change to its canonical form.
// Already-canonical names and names with no ARKit match are left out.
func RenamePlan(names []string) map[string]string {
	plan := make(map[string]string)
	for _, name := range names {
		target, ok := Canonical(name)
		if !ok || target == name {
			continue
		}
		plan[name] = target
	}
	return plan
}

// Names returns the full canonical ARKit name set, sorted.
func Names() []string {
	out := make([]string, 0, len(canonical))
	for _, v := range canonical {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
