package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portsrepo "github.com/clearborder/duty_engine/internal/core/ports/repositories"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/utils/formula"
	"github.com/clearborder/duty_engine/internal/utils/htscode"
	"github.com/shopspring/decimal"
)

// ResolutionConfig carries the fixed parameters of the source priority chain.
type ResolutionConfig struct {
	// SpecialProgramChapter is the chapter whose codes get the early
	// historical-snapshot fallback.
	SpecialProgramChapter string
	// HistoricalCutoff bounds the early fallback: only entry dates on or
	// before it qualify.
	HistoricalCutoff time.Time
}

// DefaultResolutionConfig returns the chain parameters used when
// configuration does not override them.
func DefaultResolutionConfig() ResolutionConfig {
	return ResolutionConfig{
		SpecialProgramChapter: "99",
		HistoricalCutoff:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// legalReferenceRe matches rate texts that refer to legal notes or other
// headings and therefore need human judgment (or the knowledge base) rather
// than pattern parsing.
var legalReferenceRe = regexp.MustCompile(`(?i)\b(see|note|notes)\b|duty equal|applicable subheading`)

// inferredBaseRe matches the literal additive-adjustment shape
// "(<base>) + (value * <k>)" that the synthesis process produces.
var inferredBaseRe = regexp.MustCompile(`^\((.+)\)\s*\+\s*\(\s*value\s*\*\s*([0-9.]+)\s*\)$`)

// synthesisRateTolerance bounds the comparison between the recorded
// adjustment rate and the one found in an adjusted formula.
var synthesisRateTolerance = decimal.New(1, -9) // 1e-9

// RateResolutionService is the formula source selector: a state-free priority
// chain evaluated per request, short-circuiting on the first non-empty result.
type RateResolutionService struct {
	tariffRepo portsrepo.TariffEntryReader
	patterns   portssvc.PatternFormulaGenerator
	notes      portssvc.NoteResolverSvc // optional, may be nil
	cfg        ResolutionConfig
	logger     *slog.Logger
}

// NewRateResolutionService creates a new RateResolutionService. notes may be
// nil; the knowledge-base step is then skipped.
func NewRateResolutionService(
	tariffRepo portsrepo.TariffEntryReader,
	patterns portssvc.PatternFormulaGenerator,
	notes portssvc.NoteResolverSvc,
	cfg ResolutionConfig,
	logger *slog.Logger,
) *RateResolutionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateResolutionService{
		tariffRepo: tariffRepo,
		patterns:   patterns,
		notes:      notes,
		cfg:        cfg,
		logger:     logger,
	}
}

// resolveContext is the per-request state shared by the chain's steps.
type resolveContext struct {
	entry           *domain.TariffCodeEntry
	input           domain.CalculationInput
	code            string // digit-normalized requested code
	nonPreferential bool
	specialEligible bool
	desired         []domain.FormulaType
}

// resolveStep is one strategy of the chain: a nil resolution with nil error
// means "no result from this source, try the next".
type resolveStep struct {
	name string
	run  func(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error)
}

// ResolveFormula evaluates the priority chain and returns the first hit.
// External-lookup failures are recovered as "no result from this source";
// only exhausting every step is a NotFound.
func (s *RateResolutionService) ResolveFormula(ctx context.Context, entry *domain.TariffCodeEntry, input domain.CalculationInput) (*domain.FormulaResolution, error) {
	rc := &resolveContext{
		entry:           entry,
		input:           input,
		code:            htscode.Digits(input.Code),
		nonPreferential: entry.IsNonPreferentialCountry(input.CountryOfOrigin),
	}
	rc.specialEligible = s.specialProgramEligible(entry, input)
	rc.desired = desiredFormulaTypes(rc.nonPreferential, rc.specialEligible)

	steps := []resolveStep{
		{"manual_override", s.resolveManualOverride},
		{"historical_special_chapter", s.resolveEarlyHistorical},
		{"entry_columns", s.resolveEntryColumns},
		{"pattern_inference", s.resolvePatternInference},
		{"inferred_base", s.resolveInferredBase},
		{"knowledge_base", s.resolveKnowledgeBase},
		{"historical_fallback", s.resolveHistorical},
	}

	for _, step := range steps {
		res, err := step.run(ctx, rc)
		if err != nil {
			if errors.Is(err, apperrors.ErrExternalLookup) {
				s.logger.Warn("formula source unavailable, trying next",
					slog.String("step", step.name),
					slog.String("code", rc.code),
					slog.String("error", err.Error()))
				continue
			}
			return nil, err
		}
		if res != nil {
			if res.Variables == nil {
				if vars, verr := formula.Variables(res.Formula); verr == nil {
					res.Variables = vars
				}
			}
			return res, nil
		}
	}

	return nil, apperrors.NewNotFoundError("no formula resolvable for code " + input.Code)
}

// desiredFormulaTypes is the decision table turning the request's eligibility
// signals into the ordered list of formula types to try for overrides.
func desiredFormulaTypes(nonPreferential, specialEligible bool) []domain.FormulaType {
	switch {
	case specialEligible:
		return []domain.FormulaType{domain.FormulaSpecial, domain.FormulaGeneral}
	case nonPreferential:
		return []domain.FormulaType{domain.FormulaOther, domain.FormulaGeneral}
	default:
		return []domain.FormulaType{domain.FormulaGeneral}
	}
}

// specialProgramEligible checks every gate of the special synthesis program:
// origin not non-preferential, metadata not a reciprocal-only baseline, at
// least one program signal on the entry, at least one caller-selected heading
// linked to the entry, and - when the entry restricts eligible countries -
// the origin on that list.
func (s *RateResolutionService) specialProgramEligible(entry *domain.TariffCodeEntry, input domain.CalculationInput) bool {
	if entry.IsNonPreferentialCountry(input.CountryOfOrigin) {
		return false
	}
	if entry.Metadata.ReciprocalOnlyBaseline {
		return false
	}
	if len(entry.Metadata.ProgramSignals) == 0 {
		return false
	}
	if entry.SpecialDetail == nil {
		return false
	}

	headingSelected := false
	for _, selected := range input.SelectedHeadings {
		for _, linked := range entry.SpecialDetail.Headings {
			if htscode.SameHeading(selected, linked) {
				headingSelected = true
				break
			}
		}
		if headingSelected {
			break
		}
	}
	if !headingSelected {
		return false
	}

	if len(entry.SpecialDetail.EligibleCountries) > 0 {
		found := false
		for _, c := range entry.SpecialDetail.EligibleCountries {
			if c == input.CountryOfOrigin {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *RateResolutionService) resolveManualOverride(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	for _, ft := range rc.desired {
		override, err := s.tariffRepo.FindManualOverride(ctx, rc.code, rc.input.CountryOfOrigin, ft, rc.input.Version)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to look up manual override: %w", err)
		}
		return &domain.FormulaResolution{
			Formula:              override.Formula,
			Source:               domain.SourceManualOverride,
			Confidence:           domain.ConfidenceManual,
			FormulaType:          ft,
			SuppressExtraCharges: override.SuppressExtraCharges,
		}, nil
	}
	return nil, nil
}

// resolveEarlyHistorical is the special-program-chapter snapshot fallback,
// restricted to entry dates on or before the historical cutoff.
func (s *RateResolutionService) resolveEarlyHistorical(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	if rc.entry.Chapter != s.cfg.SpecialProgramChapter {
		return nil, nil
	}
	if rc.input.EntryDate.After(s.cfg.HistoricalCutoff) {
		return nil, nil
	}
	return s.historicalResolution(ctx, rc)
}

// resolveEntryColumns tries the entry's precompiled formulas in fixed order:
// special-program detail, non-preferential, adjusted, general.
func (s *RateResolutionService) resolveEntryColumns(_ context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	entry := rc.entry
	if rc.specialEligible && entry.SpecialDetail != nil && entry.SpecialDetail.Formula != "" {
		return &domain.FormulaResolution{
			Formula:     entry.SpecialDetail.Formula,
			Source:      domain.SourceSpecialDetail,
			Confidence:  domain.ConfidenceSynthesis,
			FormulaType: domain.FormulaSpecial,
		}, nil
	}
	if rc.nonPreferential && entry.OtherFormula != "" {
		return &domain.FormulaResolution{
			Formula:     entry.OtherFormula,
			Source:      domain.SourceOtherRate,
			Confidence:  domain.ConfidenceSynthesis,
			FormulaType: domain.FormulaOther,
		}, nil
	}
	if rc.specialEligible && entry.AdjustedFormula != "" {
		return &domain.FormulaResolution{
			Formula:     entry.AdjustedFormula,
			Source:      domain.SourceAdjusted,
			Confidence:  domain.ConfidenceSynthesis,
			FormulaType: domain.FormulaSpecial,
		}, nil
	}
	if entry.GeneralFormula != "" {
		return &domain.FormulaResolution{
			Formula:     entry.GeneralFormula,
			Source:      domain.SourceGeneralRate,
			Confidence:  domain.ConfidenceStandard,
			FormulaType: domain.FormulaGeneral,
		}, nil
	}
	return nil, nil
}

// resolvePatternInference runs the pattern generator over the general-text
// variants, skipping texts that reference legal notes.
func (s *RateResolutionService) resolvePatternInference(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	variants := []struct {
		text       string
		source     string
		confidence float64
	}{
		{rc.entry.GeneralRateText, domain.SourcePatternGeneral, domain.ConfidencePatternGeneral},
		{rc.entry.LegacyGeneralRateText, domain.SourcePatternLegacy, domain.ConfidencePatternLegacy},
		{rc.entry.StagedGeneralRateText, domain.SourcePatternStaged, domain.ConfidencePatternStaged},
	}

	for _, v := range variants {
		if v.text == "" || requiresHumanJudgment(v.text) {
			continue
		}
		generated, err := s.patterns.GenerateFromText(ctx, v.text, rc.input.QuantityUnit)
		if err != nil {
			return nil, apperrors.NewExternalLookupError("pattern generator failed", err)
		}
		if generated == nil {
			continue
		}
		return &domain.FormulaResolution{
			Formula:     generated.Formula,
			Source:      v.source,
			Confidence:  v.confidence,
			FormulaType: domain.FormulaGeneral,
			Variables:   generated.Variables,
		}, nil
	}
	return nil, nil
}

// resolveInferredBase reverses a known additive synthesis adjustment: when
// only an adjusted formula exists and it has the literal shape
// "(<base>) + (value * <k>)" with <k> equal to the recorded adjustment rate,
// <base> is the general formula.
func (s *RateResolutionService) resolveInferredBase(_ context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	entry := rc.entry
	if entry.GeneralFormula != "" || entry.AdjustedFormula == "" {
		return nil, nil
	}
	recorded := entry.Metadata.SynthesisAdjustmentRate
	if recorded == nil {
		return nil, nil
	}

	m := inferredBaseRe.FindStringSubmatch(strings.TrimSpace(entry.AdjustedFormula))
	if m == nil {
		return nil, nil
	}
	k, err := decimal.NewFromString(m[2])
	if err != nil {
		return nil, nil
	}
	if k.Sub(*recorded).Abs().GreaterThan(synthesisRateTolerance) {
		return nil, nil
	}

	return &domain.FormulaResolution{
		Formula:     strings.TrimSpace(m[1]),
		Source:      domain.SourceInferredBase,
		Confidence:  domain.ConfidenceInferredBase,
		FormulaType: domain.FormulaGeneral,
	}, nil
}

// resolveKnowledgeBase consults the note resolver, only for rate texts that
// actually reference a note and only when the collaborator is configured.
func (s *RateResolutionService) resolveKnowledgeBase(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	text, column := rc.applicableRateText()
	if text == "" || !strings.Contains(strings.ToLower(text), "note") {
		return nil, nil
	}
	if s.notes == nil {
		s.logger.Debug("note resolver not configured, skipping knowledge base",
			slog.String("code", rc.code))
		return nil, nil
	}

	resolution, err := s.notes.ResolveNoteReference(ctx, rc.code, text, column, rc.input.EntryDate.Year())
	if err != nil {
		return nil, err
	}
	if resolution == nil {
		return nil, nil
	}
	confidence := resolution.Confidence
	if confidence < domain.ConfidenceKnowledgeBaseMin {
		confidence = domain.ConfidenceKnowledgeBaseMin
	}
	return &domain.FormulaResolution{
		Formula:     resolution.Formula,
		Source:      domain.SourceKnowledgeBase,
		Confidence:  confidence,
		FormulaType: domain.FormulaGeneral,
	}, nil
}

// resolveHistorical is the final, chapter-unconditional snapshot fallback.
func (s *RateResolutionService) resolveHistorical(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	return s.historicalResolution(ctx, rc)
}

// historicalResolution reconstructs a formula from a snapshot's numeric rate
// components, or parses its raw text when no components were captured.
func (s *RateResolutionService) historicalResolution(ctx context.Context, rc *resolveContext) (*domain.FormulaResolution, error) {
	if len(rc.code) < 8 {
		return nil, nil
	}
	code8 := rc.code[:8]

	snapshot, err := s.tariffRepo.FindHistoricalSnapshot(ctx, code8, rc.input.EntryDate, rc.input.EntryDate.Year())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewExternalLookupError("historical snapshot lookup failed", err)
	}

	if snapshot.HasNumericComponents() {
		var parts []string
		if !snapshot.AdValoremRate.IsZero() {
			parts = append(parts, "value * "+snapshot.AdValoremRate.Div(decimal.NewFromInt(100)).String())
		}
		for _, comp := range []domain.SnapshotComponent{snapshot.Specific, snapshot.Other} {
			if comp.Rate.IsZero() {
				continue
			}
			parts = append(parts, snapshotVariable(comp.Unit)+" * "+comp.Rate.String())
		}
		return &domain.FormulaResolution{
			Formula:     strings.Join(parts, " + "),
			Source:      domain.SourceHistoricalRebuilt,
			Confidence:  domain.ConfidenceHistoricalRebuilt,
			FormulaType: domain.FormulaGeneral,
		}, nil
	}

	if snapshot.RawRateText == "" {
		return nil, nil
	}
	generated, err := s.patterns.GenerateFromText(ctx, snapshot.RawRateText, rc.input.QuantityUnit)
	if err != nil {
		return nil, apperrors.NewExternalLookupError("pattern generator failed on snapshot text", err)
	}
	if generated == nil {
		return nil, nil
	}
	return &domain.FormulaResolution{
		Formula:     generated.Formula,
		Source:      domain.SourceHistoricalParsed,
		Confidence:  domain.ConfidenceHistoricalParsed,
		FormulaType: domain.FormulaGeneral,
		Variables:   generated.Variables,
	}, nil
}

// snapshotVariable picks the shipment variable a specific-rate component
// multiplies, from its unit-of-quantity code.
func snapshotVariable(unit string) string {
	if strings.EqualFold(unit, domain.UnitKilogram) {
		return "weight"
	}
	return "quantity"
}

// applicableRateText picks the raw text of the column the request would be
// rated under.
func (rc *resolveContext) applicableRateText() (string, string) {
	if rc.nonPreferential && rc.entry.OtherRateText != "" {
		return rc.entry.OtherRateText, "other"
	}
	if rc.entry.GeneralRateText != "" {
		return rc.entry.GeneralRateText, "general"
	}
	return rc.entry.LegacyGeneralRateText, "general"
}

// requiresHumanJudgment reports whether rate text carries a legal reference
// that deterministic pattern parsing must not attempt.
func requiresHumanJudgment(text string) bool {
	return legalReferenceRe.MatchString(text)
}
