package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/simaogato/budgetline-backend/internal/domain"
	applog "github.com/simaogato/budgetline-backend/internal/log"
)

// AnalysisService rolls the budget hierarchy up into per budget line of totals
type AnalysisService struct {
	Repo   domain.AnalysisRepository
	Clock  func() time.Time
	Logger *applog.Logger
}

// NewAnalysisService creates a new AnalysisService instance
func NewAnalysisService(repo domain.AnalysisRepository) *AnalysisService {
	return &AnalysisService{
		Repo:   repo,
		Clock:  time.Now,
		Logger: applog.Discard().WithComponent(applog.ComponentAnalysis),
	}
}

// AnalyseInput selects the services and the period of the report.
// Zero values fall back to the current year, January and the current month.
type AnalyseInput struct {
	ServiceIDs []string
	Year       int
	StartMonth domain.Month
	EndMonth   domain.Month
}

// Window returns the budget line of creation window covered by the input:
// from the first day of StartMonth to the first day of the month after EndMonth, UTC.
func (in AnalyseInput) Window() (time.Time, time.Time, error) {
	start, end := in.StartMonth.Index(), in.EndMonth.Index()
	if start < 0 || end < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid month range %q..%q", domain.ErrInvalidInput, in.StartMonth, in.EndMonth)
	}
	if start > end {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start month %s must be before or equal to end month %s", domain.ErrInvalidInput, in.StartMonth, in.EndMonth)
	}

	from := time.Date(in.Year, time.Month(start+1), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(in.Year, time.Month(end+2), 1, 0, 0, 0, 0, time.UTC)
	return from, to, nil
}

// withDefaults fills the zero fields from now
func (in AnalyseInput) withDefaults(now time.Time) AnalyseInput {
	if in.Year == 0 {
		in.Year = now.Year()
	}
	if in.StartMonth == "" {
		in.StartMonth = domain.MonthJanvier
	}
	if in.EndMonth == "" {
		in.EndMonth = domain.Months[int(now.Month())-1]
	}
	return in
}

// Analyse returns the active major budget lines of the services with every
// budget line of created in the window summed over its active breakdowns.
func (s *AnalysisService) Analyse(ctx context.Context, input AnalyseInput) ([]MajorLineSummary, error) {
	if len(input.ServiceIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one service is required", domain.ErrInvalidInput)
	}

	input = input.withDefaults(s.Clock().UTC())
	from, to, err := input.Window()
	if err != nil {
		return nil, err
	}

	rows, err := s.Repo.AnalysisRows(ctx, domain.AnalysisQuery{
		ServiceIDs: input.ServiceIDs,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis rows: %w", err)
	}

	s.Logger.DebugContext(ctx, "analysis rows loaded",
		applog.FieldServiceIDs, input.ServiceIDs, applog.FieldYear, input.Year, "rows", len(rows))
	return Fold(rows), nil
}
