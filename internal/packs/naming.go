package packs

import (
	"regexp"
	"strings"

	"clonecore/pkg/domain"
)

var (
	styleSanitizer = regexp.MustCompile(`[^0-9a-zA-Z]+`)
	nameTokenizer  = regexp.MustCompile(`[^a-z0-9]+`)
)

// genderPrefix is the collection naming prefix. Anything that is not
// explicitly male uses the female prefix, matching the asset convention.
func genderPrefix(g domain.Gender) string {
	if g == domain.GenderMale {
		return "m_"
	}
	return "f_"
}

// FormatTraitDisplayName derives a collection name from a trait folder
// name. Folder names are dash-separated with a leading pack token that is
// dropped; remaining tokens are lowercased and concatenated, "combined"
// markers are dropped, and a single leading underscore on a token is
// stripped.
func FormatTraitDisplayName(folderName string, gender domain.Gender) string {
	var b strings.Builder
	b.WriteString(genderPrefix(gender))
	for i, token := range strings.Split(folderName, "-") {
		if i == 0 {
			continue
		}
		if strings.EqualFold(token, "combined") {
			continue
		}
		token = strings.TrimPrefix(token, "_")
		b.WriteString(strings.ToLower(token))
	}
	return b.String()
}

// FormatStyleName slugs an imported style filename: runs of
// non-alphanumerics collapse to underscores and the gender prefix is added
// unless already present.
func FormatStyleName(raw string, gender domain.Gender) string {
	name := styleSanitizer.ReplaceAllString(raw, "_")
	prefix := genderPrefix(gender)
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// ManifestMatchesGender reports whether pack metadata targets the selected
// gender. A male or female subdir decides directly; otherwise the pack name
// is tokenized and checked for the gender word, so "female" never matches a
// "male" query by substring.
func ManifestMatchesGender(m domain.PackManifest, g domain.Gender) bool {
	if g != domain.GenderFemale && g != domain.GenderMale {
		return true
	}
	subdir := strings.ToLower(m.Subdir)
	if subdir == "male" || subdir == "female" {
		return subdir == string(g)
	}
	for _, token := range nameTokenizer.Split(strings.ToLower(m.Name), -1) {
		if token == string(g) {
			return true
		}
	}
	return false
}
