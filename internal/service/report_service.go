package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bbec/class-ops-api/internal/dto"
	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

const unknownName = "Unknown"

type confirmedSessionReader interface {
	ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error)
}

type uploadedTaskReader interface {
	ListUploadedBetween(ctx context.Context, filter models.UploadTaskFilter) ([]models.UploadTaskDetail, error)
}

// ReportService aggregates confirmed sessions and uploaded tasks into the
// admin summary reports. Amounts are decimal all the way through; empty
// ranges produce zero totals, never errors.
type ReportService struct {
	sessions confirmedSessionReader
	uploads  uploadedTaskReader
	cache    *CacheService
	logger   *zap.Logger
	loc      *time.Location
	cacheTTL time.Duration
}

// NewReportService constructs a ReportService.
func NewReportService(sessions confirmedSessionReader, uploads uploadedTaskReader, cache *CacheService, logger *zap.Logger, loc *time.Location, cacheTTL time.Duration) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{sessions: sessions, uploads: uploads, cache: cache, logger: logger, loc: loc, cacheTTL: cacheTTL}
}

// Summary aggregates confirmed sessions within the optional confirmed_at
// range: overall totals plus a per-teacher breakdown.
func (s *ReportService) Summary(ctx context.Context, actor *models.JWTClaims, start, end string) (*dto.SummaryReportResponse, error) {
	if err := Authorize(actor, OpViewReports); err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(start, end, s.loc)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("report:summary:%s:%s", start, end)
	if s.cache != nil {
		var cached dto.SummaryReportResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	sessions, err := s.sessions.ListConfirmed(ctx, models.SessionFilter{Start: from, End: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load confirmed sessions")
	}

	report := buildSummary(sessions)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("summary report cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

// UploadedVideos aggregates uploaded tasks within the optional uploaded_at
// range: a total count plus per-editor counts. Rates per video are decided
// at bill time, so there is no money here.
func (s *ReportService) UploadedVideos(ctx context.Context, actor *models.JWTClaims, start, end string) (*dto.UploadedVideosReportResponse, error) {
	if err := Authorize(actor, OpViewReports); err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(start, end, s.loc)
	if err != nil {
		return nil, err
	}

	tasks, err := s.uploads.ListUploadedBetween(ctx, models.UploadTaskFilter{Start: from, End: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load uploaded tasks")
	}

	report := &dto.UploadedVideosReportResponse{
		TotalVideos: len(tasks),
		ByEditor:    []dto.EditorBreakdown{},
	}
	index := map[string]int{}
	for _, task := range tasks {
		key := ""
		name := unknownName
		if task.EditorID != nil {
			key = *task.EditorID
		}
		if task.EditorName != nil && *task.EditorName != "" {
			name = *task.EditorName
		}
		pos, ok := index[key]
		if !ok {
			pos = len(report.ByEditor)
			index[key] = pos
			report.ByEditor = append(report.ByEditor, dto.EditorBreakdown{EditorID: key, EditorName: name})
		}
		report.ByEditor[pos].Videos++
	}
	sort.Slice(report.ByEditor, func(i, j int) bool {
		return report.ByEditor[i].Videos > report.ByEditor[j].Videos
	})
	return report, nil
}

func buildSummary(sessions []models.ClassSessionDetail) *dto.SummaryReportResponse {
	report := &dto.SummaryReportResponse{
		Summary: dto.SummaryTotals{
			TotalHours:  decimal.Zero,
			TotalAmount: decimal.Zero,
		},
		ByTeacher: []dto.TeacherBreakdown{},
	}
	index := map[string]int{}
	for i := range sessions {
		session := &sessions[i]
		amount := session.Amount()

		report.Summary.TotalClasses++
		report.Summary.TotalHours = report.Summary.TotalHours.Add(session.Hours)
		report.Summary.TotalAmount = report.Summary.TotalAmount.Add(amount)

		pos, ok := index[session.TeacherID]
		if !ok {
			name := session.TeacherName
			if name == "" {
				name = unknownName
			}
			pos = len(report.ByTeacher)
			index[session.TeacherID] = pos
			report.ByTeacher = append(report.ByTeacher, dto.TeacherBreakdown{
				TeacherID:   session.TeacherID,
				TeacherName: name,
				TeacherTpin: session.TeacherTpin,
				Hours:       decimal.Zero,
				Amount:      decimal.Zero,
			})
		}
		report.ByTeacher[pos].Classes++
		report.ByTeacher[pos].Hours = report.ByTeacher[pos].Hours.Add(session.Hours)
		report.ByTeacher[pos].Amount = report.ByTeacher[pos].Amount.Add(amount)
	}
	sort.Slice(report.ByTeacher, func(i, j int) bool {
		return report.ByTeacher[i].TeacherName < report.ByTeacher[j].TeacherName
	})
	return report
}
