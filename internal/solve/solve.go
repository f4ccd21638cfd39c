// Package solve implements C9, the configuration solve pipeline: Collect
// walks an instance's relationship graph, Prepare materializes every
// relationship it can and assigns domains, Solve compiles what Prepare
// left unresolved into an integer-linear problem and hands it to
// internal/ilp, and Derived evaluates expression/conditional properties
// over the result. The four phases produce an immutable
// ConfigurationArtifact (spec.md section 4.8).
//
// New code — BeadsLog has no configurator. The phase split and the
// pseudo-boolean compilation of Quantifier into a linear constraint are
// taken directly from spec.md sections 3 and 4.8; the solver itself is
// internal/ilp.
package solve

import (
	"context"
	"fmt"
	"time"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/ilp"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

// Phase names one of the four pipeline stages, used to tag timings and
// issues in SolveMetadata.
type Phase string

const (
	PhaseCollect Phase = "collect"
	PhasePrepare Phase = "prepare"
	PhaseSolve   Phase = "solve"
	PhaseDerived Phase = "derived"
)

// IssueSeverity distinguishes a recoverable warning from a hard failure
// recorded against the artifact instead of aborting the solve.
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityError   IssueSeverity = "error"
)

// Issue is one recorded problem encountered during a phase that did not
// abort the pipeline (a materialization error that downgraded a
// relationship to empty, an infeasible solve that left domains at their
// prepared values, and so on — spec.md section 4.8 phases 2 and 3).
type Issue struct {
	Phase    Phase
	Severity IssueSeverity
	Message  string
}

// PhaseTiming records how long one phase took.
type PhaseTiming struct {
	Phase    Phase
	Duration time.Duration
}

// SolveMetadata carries per-phase timings, solver statistics, and issues
// alongside a ConfigurationArtifact. When IncludeMetadata is false on the
// request, Timings is left empty; VariableCount, ConstraintCount and
// NodesExplored are filled either way.
type SolveMetadata struct {
	Timings         []PhaseTiming
	VariableCount   int
	ConstraintCount int
	NodesExplored   int
	Issues          []Issue
}

func (m *SolveMetadata) addIssue(phase Phase, severity IssueSeverity, format string, args ...any) {
	m.Issues = append(m.Issues, Issue{Phase: phase, Severity: severity, Message: fmt.Sprintf(format, args...)})
}

func (m *SolveMetadata) recordTiming(phase Phase, start time.Time, includeMetadata bool) {
	if !includeMetadata {
		return
	}
	m.Timings = append(m.Timings, PhaseTiming{Phase: phase, Duration: time.Since(start)})
}

// ResolutionContext names the commit/branch a solve ran against and the
// instance it was asked to resolve.
type ResolutionContext struct {
	DatabaseId model.Id
	BranchName string
	CommitHash string
	TargetId   model.Id
}

// ConfigurationArtifact is the immutable output of a solve (spec.md
// section 4.8, "Outputs").
type ConfigurationArtifact struct {
	Id                model.Id
	CreatedAt         time.Time
	ResolutionContext ResolutionContext
	Configuration     []model.Instance
	SolveMetadata     SolveMetadata
	UserMetadata      map[string]string
	DerivedProperties map[model.Id]map[string]any
}

// Constraint is an additional linear constraint callback injected into
// the compiled ILP problem, grounded on original_source/src/logic/
// analysis.rs's constrained-analysis queries (spec.md section 4.8 phase
// 3 item 5: "Σ field_value · x_i ≤ bound"). FieldValue supplies the
// per-candidate-instance coefficient; instances it does not mention
// contribute zero.
type Constraint struct {
	Label      string
	FieldValue map[model.Id]float64
	Op         ilp.CompareOp
	Bound      float64
}

// Objectives maps a candidate instance id to the weight the solver
// minimizes Σ weight·x over (spec.md section 4.8 phase 3 item 4). A nil
// or empty Objectives accepts any feasible assignment.
type Objectives map[model.Id]float64

// Request parameters a single solve (spec.md: "solve_instance(context,
// target_id, objectives?, derived_properties?, include_metadata)").
type Request struct {
	Context         ResolutionContext
	Schema          model.Schema
	Universe        pool.Universe
	TargetId        model.Id
	Objectives      Objectives
	DerivedNames    map[model.Id][]string // instance id -> derived field names requested; nil means "all declared"
	ExtraConstraints []Constraint
	Policy          pool.CrossBranchPolicy
	IncludeMetadata bool
}

// Solve runs the full Collect -> Prepare -> Solve -> Derived pipeline.
func Solve(ctx context.Context, solver ilp.Solver, req Request) (ConfigurationArtifact, error) {
	meta := SolveMetadata{}

	collectStart := time.Now()
	collected, err := Collect(req.Universe, req.TargetId)
	if err != nil {
		return ConfigurationArtifact{}, err
	}
	meta.recordTiming(PhaseCollect, collectStart, req.IncludeMetadata)

	prepareStart := time.Now()
	prepared, err := Prepare(req.Schema, req.Universe, collected, req.Policy, &meta)
	if err != nil {
		return ConfigurationArtifact{}, err
	}
	meta.recordTiming(PhasePrepare, prepareStart, req.IncludeMetadata)

	solveStart := time.Now()
	if err := runSolve(ctx, solver, prepared, req.Objectives, req.ExtraConstraints, &meta); err != nil {
		return ConfigurationArtifact{}, err
	}
	meta.recordTiming(PhaseSolve, solveStart, req.IncludeMetadata)

	derivedStart := time.Now()
	derived := Derived(req.Schema, prepared, req.DerivedNames, &meta)
	meta.recordTiming(PhaseDerived, derivedStart, req.IncludeMetadata)

	configuration := make([]model.Instance, 0, len(prepared.Configuration))
	for _, id := range prepared.Order {
		configuration = append(configuration, prepared.Configuration[id])
	}

	return ConfigurationArtifact{
		Id:                model.NewId(),
		CreatedAt:         time.Now(),
		ResolutionContext: req.Context,
		Configuration:     configuration,
		SolveMetadata:     meta,
		DerivedProperties: derived,
	}, nil
}

// BatchSolve reuses one Collect+Prepare pass across several objective
// sets, re-running only Solve and Derived per entry (spec.md section
// 4.8, "Batch solve").
func BatchSolve(ctx context.Context, solver ilp.Solver, req Request, objectiveSets map[string]Objectives) (map[string]ConfigurationArtifact, error) {
	baseMeta := SolveMetadata{}

	collectStart := time.Now()
	collected, err := Collect(req.Universe, req.TargetId)
	if err != nil {
		return nil, err
	}
	baseMeta.recordTiming(PhaseCollect, collectStart, req.IncludeMetadata)

	prepareStart := time.Now()
	prepared, err := Prepare(req.Schema, req.Universe, collected, req.Policy, &baseMeta)
	if err != nil {
		return nil, err
	}
	baseMeta.recordTiming(PhasePrepare, prepareStart, req.IncludeMetadata)

	out := make(map[string]ConfigurationArtifact, len(objectiveSets))
	for name, objectives := range objectiveSets {
		run := prepared.Clone()
		meta := baseMeta
		meta.Issues = append([]Issue(nil), baseMeta.Issues...)

		solveStart := time.Now()
		if err := runSolve(ctx, solver, run, objectives, req.ExtraConstraints, &meta); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "batch objective %q", name)
		}
		meta.recordTiming(PhaseSolve, solveStart, req.IncludeMetadata)

		derivedStart := time.Now()
		derived := Derived(req.Schema, run, req.DerivedNames, &meta)
		meta.recordTiming(PhaseDerived, derivedStart, req.IncludeMetadata)

		configuration := make([]model.Instance, 0, len(run.Configuration))
		for _, id := range run.Order {
			configuration = append(configuration, run.Configuration[id])
		}

		out[name] = ConfigurationArtifact{
			Id:                model.NewId(),
			CreatedAt:         time.Now(),
			ResolutionContext: req.Context,
			Configuration:     configuration,
			SolveMetadata:     meta,
			DerivedProperties: derived,
		}
	}
	return out, nil
}
