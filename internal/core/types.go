package core

import "clonecore/pkg/domain"

type (
	EntityType          = domain.EntityType
	ObjectType          = domain.ObjectType
	Gender              = domain.Gender
	Severity            = domain.Severity
	Base                = domain.Base
	Vec3                = domain.Vec3
	SceneObject         = domain.SceneObject
	TraitCollection     = domain.TraitCollection
	PackManifest        = domain.PackManifest
	PackRecord          = domain.PackRecord
	RegistrationEntry   = domain.RegistrationEntry
	ImportRecord        = domain.ImportRecord
	ImportSummary       = domain.ImportSummary
	NormalizationReport = domain.NormalizationReport
	CollectionStatus    = domain.CollectionStatus
	ReconcileReport     = domain.ReconcileReport
	ExtractionResult    = domain.ExtractionResult
	ExtractionStrategy  = domain.ExtractionStrategy
	TraitCategory       = domain.TraitCategory
	Anchor              = domain.Anchor
	ReferencePoints     = domain.ReferencePoints
	Classifier          = domain.Classifier
	ClassificationRule  = domain.ClassificationRule
	SceneStore          = domain.SceneStore
	SceneView           = domain.SceneView
	Change              = domain.Change
	Action              = domain.Action
	Violation           = domain.Violation
	Result              = domain.Result
	Rule                = domain.Rule
	RulesEngine         = domain.RulesEngine
	RuleViolationError  = domain.RuleViolationError
)

const (
	EntityPack         = domain.EntityPack
	EntityImport       = domain.EntityImport
	EntityRegistration = domain.EntityRegistration
	EntitySceneObject  = domain.EntitySceneObject
)

const (
	ObjectMesh     = domain.ObjectMesh
	ObjectArmature = domain.ObjectArmature
	ObjectCurve    = domain.ObjectCurve
	ObjectEmpty    = domain.ObjectEmpty
	ObjectLight    = domain.ObjectLight
	ObjectCamera   = domain.ObjectCamera
)

const (
	GenderFemale = domain.GenderFemale
	GenderMale   = domain.GenderMale
	GenderAny    = domain.GenderAny
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	StrategyDirect      = domain.StrategyDirect
	StrategyStagedShort = domain.StrategyStagedShort
	StrategyStagedRoot  = domain.StrategyStagedRoot
	StrategyFailed      = domain.StrategyFailed
)
