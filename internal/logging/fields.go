package logging

// Standard field names for structured logging across geosem.
const (
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldDuration  = "duration"

	FieldModelID = "model_id"
	FieldStore   = "store"
	FieldPath    = "path"

	// Training
	FieldRules         = "rules"
	FieldCandidates    = "candidates"
	FieldMaxCandidates = "max_candidates"
	FieldImpliable     = "impliable"
	FieldRegConst      = "reg_const"
	FieldWorkers       = "workers"
	FieldEvaluation    = "evaluation"
	FieldObjective     = "objective"
	FieldLogLikelihood = "log_likelihood"
	FieldIterations    = "iterations"

	// Features
	FieldFeatures = "features"
	FieldDim      = "dim"
)
