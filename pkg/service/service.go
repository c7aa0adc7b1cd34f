package service

import (
	"context"
	"strings"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/decision"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/stats"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Logger defines the logging interface for ExecutionLogService
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// FilterCompiler turns a request into a store predicate.
type FilterCompiler interface {
	Compile(q query.Query) (query.Predicate, error)
}

// StatsAggregator summarises the traces matching a predicate.
type StatsAggregator interface {
	Aggregate(ctx context.Context, p query.Predicate) (stats.Stats, error)
}

// DecisionExtractor derives the outcome of a trace.
type DecisionExtractor interface {
	FinalDecision(log models.ExecutionLog) decision.Decision
	AIResponseText(log models.ExecutionLog) string
}

// StepsPaginator pages through the steps of a single trace.
var StepsPaginator = query.Paginator{DefaultLimit: 50, MaxLimit: query.MaxLimit}

// ExecutionLogService answers read-only questions about execution logs. It keeps no state
// between calls and is safe for concurrent use.
type ExecutionLogService struct {
	store      storage.TraceStore
	logger     Logger
	compiler   FilterCompiler
	aggregator StatsAggregator
	extractor  DecisionExtractor
	paginator  query.Paginator
	location   *time.Location
}

type Option func(*ExecutionLogService)

func WithCompiler(c FilterCompiler) Option {
	return func(s *ExecutionLogService) { s.compiler = c }
}

func WithAggregator(a StatsAggregator) Option {
	return func(s *ExecutionLogService) { s.aggregator = a }
}

func WithExtractor(e DecisionExtractor) Option {
	return func(s *ExecutionLogService) { s.extractor = e }
}

func WithPaginator(p query.Paginator) Option {
	return func(s *ExecutionLogService) { s.paginator = p }
}

// WithLocation sets the time zone of formatted timestamps. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *ExecutionLogService) { s.location = loc }
}

func NewExecutionLogService(store storage.TraceStore, logger Logger, opts ...Option) *ExecutionLogService {
	s := &ExecutionLogService{
		store:      store,
		logger:     logger,
		compiler:   query.Compiler{},
		aggregator: stats.NewAggregator(store),
		extractor:  decision.Extractor{},
		paginator:  query.DefaultPaginator,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of traces matching q, newest first unless q says otherwise.
func (s *ExecutionLogService) List(ctx context.Context, q query.Query) Envelope[ListResult] {
	const op = "list execution logs"
	pred, err := s.compiler.Compile(q)
	if err != nil {
		return fail[ListResult](s.logger, op, "Failed to retrieve execution logs", err)
	}
	q = q.Normalized()
	if q.FinalDecision != "" && query.DecisionClauses(decision.Decision(q.FinalDecision)) == nil {
		s.logger.Debugf("final_decision %q is not filterable; ignoring it", q.FinalDecision)
	}
	page := s.paginator.Normalize(q.Page, q.Limit, q.SortBy, q.SortOrder)
	s.logger.Debugf("Listing execution logs where %s (page %d, limit %d)", pred, page.Page, page.Limit)

	var (
		total int64
		logs  []models.ExecutionLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx, pred)
		if err != nil {
			return errors.Wrap(err, "count")
		}
		total = n
		return nil
	})
	g.Go(func() error {
		found, err := s.store.Find(gctx, pred, storage.FindOptionsFromPage(page))
		if err != nil {
			return errors.Wrap(err, "find")
		}
		logs = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return fail[ListResult](s.logger, op, "Failed to retrieve execution logs", err)
	}

	items := make([]ListItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, s.listItem(log))
	}
	s.logger.Infof("Retrieved %d of %d execution logs (page %d)", len(items), total, page.Page)
	return success(ListResult{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: query.TotalPages(total, page.Limit),
	})
}

// Detail returns the trace whose id, or failing that execution id, is ref.
func (s *ExecutionLogService) Detail(ctx context.Context, ref string) Envelope[ExecutionLogDetail] {
	const op = "get execution log"
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Envelope[ExecutionLogDetail]{
			Status:  StatusError,
			Message: msgIDRequired,
			Errors:  []string{msgIDRequired},
			err:     &query.ValidationError{Problems: []string{msgIDRequired}},
		}
	}
	log, err := s.lookup(ctx, ref)
	if err != nil {
		return fail[ExecutionLogDetail](s.logger, op, "Failed to retrieve execution log", err)
	}
	s.logger.Infof("Retrieved execution log %s with %d steps", log.ID, len(log.Steps))
	return success(s.detail(log))
}

// Stats summarises the traces matching the filter fields of q. Paging fields are ignored.
func (s *ExecutionLogService) Stats(ctx context.Context, q query.Query) Envelope[stats.Stats] {
	const op = "get execution log stats"
	q.Page, q.Limit, q.SortBy, q.SortOrder = 0, 0, "", ""
	pred, err := s.compiler.Compile(q)
	if err != nil {
		return fail[stats.Stats](s.logger, op, "Failed to retrieve execution log statistics", err)
	}
	st, err := s.aggregator.Aggregate(ctx, pred)
	if err != nil {
		return fail[stats.Stats](s.logger, op, "Failed to retrieve execution log statistics", err)
	}
	s.logger.Infof("Execution log stats: total=%d running=%d completed=%d failed=%d", st.Total, st.Running, st.Completed, st.Failed)
	return success(st)
}

// Steps returns one page of the steps of the trace identified by ref, in recorded order.
func (s *ExecutionLogService) Steps(ctx context.Context, ref string, page, limit int) Envelope[StepPage] {
	const op = "get execution steps"
	if page < 0 || limit < 0 {
		problem := "page and limit must not be negative"
		return fail[StepPage](s.logger, op, "", &query.ValidationError{Problems: []string{problem}})
	}
	log, err := s.lookup(ctx, strings.TrimSpace(ref))
	if err != nil {
		return fail[StepPage](s.logger, op, "Failed to retrieve execution steps", err)
	}
	p := StepsPaginator.Normalize(page, limit, "", "")
	total := len(log.Steps)
	items := []models.ExecutionStep{}
	if p.Skip < total {
		end := p.Skip + p.Limit
		if end > total {
			end = total
		}
		items = log.Steps[p.Skip:end]
	}
	return success(StepPage{
		Items:      items,
		Total:      int64(total),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: query.TotalPages(int64(total), p.Limit),
	})
}

func (s *ExecutionLogService) lookup(ctx context.Context, ref string) (models.ExecutionLog, error) {
	if ref == "" {
		return models.ExecutionLog{}, storage.ErrNotFound
	}
	log, err := s.store.FindOne(ctx, query.Eq(query.FieldID, ref))
	if errors.Is(err, storage.ErrNotFound) {
		log, err = s.store.FindOne(ctx, query.Eq(query.FieldExecutionID, ref))
	}
	return log, err
}

func (s *ExecutionLogService) listItem(log models.ExecutionLog) ListItem {
	d := s.extractor.FinalDecision(log)
	return ListItem{
		ID:                 log.ID,
		ExecutionID:        log.ExecutionID,
		ConversationID:     log.ConversationID,
		BusinessID:         log.BusinessID,
		Context:            log.Context,
		Status:             log.Status,
		StartTime:          log.StartTime,
		EndTime:            log.EndTime,
		TotalDurationMs:    log.TotalDurationMs,
		OriginalMessage:    log.OriginalMessage,
		StepsCount:         len(log.Steps),
		ErrorMessage:       log.ErrorMessage,
		FinalDecision:      d,
		FinalDecisionLabel: decision.Label(d),
		AIResponseText:     s.extractor.AIResponseText(log),
	}
}

func (s *ExecutionLogService) detail(log models.ExecutionLog) ExecutionLogDetail {
	d := s.extractor.FinalDecision(log)
	out := ExecutionLogDetail{
		ExecutionLog:       log,
		FormattedStartTime: FormatDateTime(log.StartTime, s.location),
		StepsByType:        GroupSteps(log.Steps),
		FinalDecision:      d,
		FinalDecisionLabel: decision.Label(d),
		FinalDecisionClass: decision.StyleClass(d),
		AIResponseText:     s.extractor.AIResponseText(log),
	}
	if log.EndTime != nil {
		out.FormattedEndTime = FormatDateTime(*log.EndTime, s.location)
	}
	if log.TotalDurationMs != nil && *log.TotalDurationMs > 0 {
		out.FormattedDuration = FormatDuration(*log.TotalDurationMs)
	}
	return out
}
