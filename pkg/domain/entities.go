// Package domain defines the scene, pack, and registration entities, value
// types, and rule evaluation primitives used by clonecore.
package domain

import (
	"fmt"
	"math"
	"time"
)

// EntityType identifies the type of record referenced in Change records and
// persistence buckets.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityPack identifies a content pack record.
	EntityPack EntityType = "pack"
	// EntityImport identifies an import session record.
	EntityImport EntityType = "import"
	// EntityRegistration identifies a trait registration entry.
	EntityRegistration EntityType = "registration"
	// EntitySceneObject identifies an object mutated in the host scene graph.
	EntitySceneObject EntityType = "scene_object"
)

// ObjectType enumerates the scene object kinds the normalizer distinguishes.
type ObjectType string

// Canonical scene object types. Only mesh and curve geometry supports
// baking a scale factor into its bounds.
const (
	ObjectMesh     ObjectType = "mesh"
	ObjectArmature ObjectType = "armature"
	ObjectCurve    ObjectType = "curve"
	ObjectEmpty    ObjectType = "empty"
	ObjectLight    ObjectType = "light"
	ObjectCamera   ObjectType = "camera"
)

// SupportsBake reports whether a scale factor can be folded into the
// object's geometry instead of its transform.
func (t ObjectType) SupportsBake() bool {
	return t == ObjectMesh || t == ObjectCurve
}

// Gender tags packs and trait collections with the avatar base they target.
type Gender string

// Recognised gender tags. GenderAny marks packs usable with either base.
const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderAny    Gender = "any"
)

// Prefix returns the collection name prefix convention for the gender.
func (g Gender) Prefix() string {
	switch g {
	case GenderFemale:
		return "f_"
	case GenderMale:
		return "m_"
	default:
		return ""
	}
}

// Vec3 is a 3-component vector used for scales, positions, and bounds.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul returns the scalar product s*v.
func (v Vec3) Mul(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Hadamard returns the component-wise product of v and o.
func (v Vec3) Hadamard(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// MaxComponent returns the largest of the three components.
func (v Vec3) MaxComponent() float64 { return math.Max(v.X, math.Max(v.Y, v.Z)) }

// ApproxEqual reports whether every component of v is within tol of o.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

// Uniform returns a vector with all components set to s.
func Uniform(s float64) Vec3 { return Vec3{s, s, s} }

// SceneObject is a read/write view over one object in the host scene graph.
// The store owns object lifetimes; this system only reads and mutates the
// transform, membership, and visibility fields.
type SceneObject struct {
	Name          string     `json:"name"`
	Type          ObjectType `json:"type"`
	Scale         Vec3       `json:"scale"`
	Position      Vec3       `json:"position"`
	BoundsMin     Vec3       `json:"bounds_min"`
	BoundsMax     Vec3       `json:"bounds_max"`
	Collections   []string   `json:"collections"`
	InViewLayer   bool       `json:"in_view_layer"`
	ArmatureBound bool       `json:"armature_bound"`
	ShapeKeys     []string   `json:"shape_keys,omitempty"`
}

// WorldBoundsCenter returns the center of the object's bounds in world
// space. Bounds are model-space; the scene model carries no rotation, so
// world = position + scale-weighted local center.
func (o SceneObject) WorldBoundsCenter() Vec3 {
	local := o.BoundsMin.Add(o.BoundsMax).Mul(0.5)
	return o.Position.Add(local.Hadamard(o.Scale))
}

// InCollection reports membership in the named collection.
func (o SceneObject) InCollection(name string) bool {
	for _, c := range o.Collections {
		if c == name {
			return true
		}
	}
	return false
}

// TraitCollection is a read view of one named collection and its members,
// assembled by the scene store on enumeration.
type TraitCollection struct {
	Name    string   `json:"name"`
	Objects []string `json:"objects"`
}

// Base contains common fields for persisted records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackManifest mirrors the packinfo.json metadata shipped inside a content
// pack archive.
type PackManifest struct {
	Name    string `json:"pack_name"`
	Subdir  string `json:"pack_subdir"`
	Type    string `json:"pack_type"`
	Creator string `json:"pack_creator"`
}

// DisplayName renders the manifest for listings, creator first.
func (m PackManifest) DisplayName() string {
	if m.Creator == "" {
		return m.Name
	}
	return fmt.Sprintf("[%s] %s", m.Creator, m.Name)
}

// PackRecord describes one registered content pack archive.
type PackRecord struct {
	Base
	Key        string       `json:"key"`
	Manifest   PackManifest `json:"manifest"`
	ArchiveKey string       `json:"archive_key"`
	Gender     Gender       `json:"gender"`
	BasePack   bool         `json:"base_pack"`
}

// RegistrationEntry is one row of the UI-facing trait registration list.
type RegistrationEntry struct {
	Base
	Name     string `json:"name"`
	TraitDir string `json:"trait_dir"`
	Gender   Gender `json:"gender"`
	Equipped bool   `json:"equipped"`
}

// ImportRecord captures one pack import session end to end: how the archive
// was staged, what the normalizer did, and whether the post-conditions held.
type ImportRecord struct {
	Base
	PackKey        string              `json:"pack_key"`
	Extraction     ExtractionResult    `json:"extraction"`
	Normalization  NormalizationReport `json:"normalization"`
	Reconciliation ReconcileReport     `json:"reconciliation"`
	Summary        ImportSummary       `json:"summary"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
}

// ImportSummary carries the per-check outcome of import validation.
type ImportSummary struct {
	CharacterFound   bool `json:"character_found"`
	TraitsFound      bool `json:"traits_found"`
	ScaleConsistent  bool `json:"scale_consistent"`
	TraitsPositioned bool `json:"traits_positioned"`
	TraitsRegistered bool `json:"traits_registered"`
	AllPassed        bool `json:"all_passed"`
}

// NormalizationReport is the structured result of one normalizer pass.
// CharacterScale and TraitScale are the dominant scales detected before any
// rescaling; VerifiedScale is re-detected after the pass so post-conditions
// can be checked from the persisted record alone.
type NormalizationReport struct {
	MismatchDetected bool               `json:"mismatch_detected"`
	CharacterScale   float64            `json:"character_scale"`
	TraitScale       float64            `json:"trait_scale"`
	VerifiedScale    float64            `json:"verified_scale"`
	Rescaled         int                `json:"rescaled"`
	Baked            int                `json:"baked"`
	Collections      []CollectionStatus `json:"collections"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// CollectionStatus records the per-collection outcome of trait positioning.
// Centroid is the collection's bounds centroid after any move; Target is the
// anchor position the move aimed for.
type CollectionStatus struct {
	Name     string        `json:"name"`
	Category TraitCategory `json:"category"`
	Anchor   Anchor        `json:"anchor"`
	Target   Vec3          `json:"target"`
	Centroid Vec3          `json:"centroid"`
	Moved    bool          `json:"moved"`
	Skipped  bool          `json:"skipped"`
	Reason   string        `json:"reason,omitempty"`
}

// ReconcileReport summarises one registration reconciliation pass.
type ReconcileReport struct {
	Added    []string `json:"added,omitempty"`
	Equipped []string `json:"equipped,omitempty"`
	Pruned   []string `json:"pruned,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to an entity during a transaction or
// to a scene object during a normalizer pass.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the subset of violations at warn severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
