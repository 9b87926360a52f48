package packs

import (
	"archive/zip"
	"errors"
	"fmt"
	"path"
	"strings"

	"clonecore/pkg/domain"
)

// Layout markers inside pack archives. Creators ship per-gender payloads
// under _female/_blender/ and _male/_blender/ directories, textures under
// _texture(s)/, and base avatar packs carry a blend file whose name
// contains "character".
const (
	femaleMarker  = "_female/_blender/"
	maleMarker    = "_male/_blender/"
	blenderMarker = "_blender/"
	blendSuffix   = ".blend"
)

var textureMarkers = []string{"_texture/", "_textures/"}

// Inspection summarizes one archive's layout without extracting it.
type Inspection struct {
	Path     string
	Manifest *domain.PackManifest

	FemalePayload bool
	MalePayload   bool
	BlendPayload  bool
	Textures      bool
	FemaleBase    bool
	MaleBase      bool
}

// Gender reports which avatar base the archive targets. Archives with both
// payloads, or neither, work with any base.
func (i Inspection) Gender() domain.Gender {
	switch {
	case i.FemalePayload && !i.MalePayload:
		return domain.GenderFemale
	case i.MalePayload && !i.FemalePayload:
		return domain.GenderMale
	default:
		return domain.GenderAny
	}
}

// BasePack reports whether the archive carries a base avatar blend.
func (i Inspection) BasePack() bool {
	return i.FemaleBase || i.MaleBase
}

// RelevantFor prefilters archives before extraction. Base packs must carry
// the selected gender's payload. Trait packs with only the wrong gender's
// blend data are skipped; texture-only packs stay in. Archives with an
// unrecognized layout pass, a false negative would silently drop a valid
// pack.
func (i Inspection) RelevantFor(g domain.Gender) bool {
	if g != domain.GenderFemale && g != domain.GenderMale {
		return true
	}
	selected := i.MalePayload
	if g == domain.GenderFemale {
		selected = i.FemalePayload
	}
	if i.BasePack() {
		return selected
	}
	if selected {
		return true
	}
	if i.BlendPayload {
		return false
	}
	return true
}

// Record converts the inspection into a pack record keyed by key, ready for
// registration.
func (i Inspection) Record(key, archiveKey string) domain.PackRecord {
	rec := domain.PackRecord{
		Key:        key,
		ArchiveKey: archiveKey,
		Gender:     i.Gender(),
		BasePack:   i.BasePack(),
	}
	if i.Manifest != nil {
		rec.Manifest = *i.Manifest
	}
	return rec
}

// Inspect scans an archive's entry names and manifest. Entry names are
// compared case-insensitively with backslashes normalized, matching how
// creators package on mixed hosts.
func Inspect(archivePath string) (Inspection, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return Inspection{}, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	insp := Inspection{Path: archivePath}
	for _, f := range r.File {
		name := strings.ToLower(strings.ReplaceAll(f.Name, `\`, "/"))
		isBlend := strings.HasSuffix(name, blendSuffix)
		if isBlend && strings.Contains(name, blenderMarker) {
			insp.BlendPayload = true
		}
		if strings.Contains(name, femaleMarker) && isBlend {
			insp.FemalePayload = true
			if isCharacterBlend(name) {
				insp.FemaleBase = true
			}
		}
		if strings.Contains(name, maleMarker) && isBlend {
			insp.MalePayload = true
			if isCharacterBlend(name) {
				insp.MaleBase = true
			}
		}
		for _, marker := range textureMarkers {
			if strings.Contains(name, marker) {
				insp.Textures = true
				break
			}
		}
	}

	m, err := readManifest(&r.Reader)
	switch {
	case err == nil:
		insp.Manifest = &m
	case errors.Is(err, ErrNoManifest):
	default:
		return Inspection{}, err
	}
	return insp, nil
}

// isCharacterBlend matches base avatar blends, which consistently carry
// "character" in the filename. name must already be lowercased.
func isCharacterBlend(name string) bool {
	base := path.Base(name)
	return strings.Contains(base, "character") && strings.HasSuffix(base, blendSuffix)
}
