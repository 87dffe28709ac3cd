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

type billableSessionRepository interface {
	ListConfirmed(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, error)
	BulkMarkPaid(ctx context.Context, ids []string, at time.Time) (int, error)
}

// BillingService assembles the two printable bills. The daily class bill has
// a side effect: generating it marks its not-yet-paid sessions paid. The
// uploads bill is pure computation and never mutates task state.
type BillingService struct {
	sessions billableSessionRepository
	uploads  uploadedTaskReader
	metrics  *MetricsService
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewBillingService constructs a BillingService.
func NewBillingService(sessions billableSessionRepository, uploads uploadedTaskReader, metrics *MetricsService, logger *zap.Logger, loc *time.Location) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BillingService{sessions: sessions, uploads: uploads, metrics: metrics, logger: logger, loc: loc, now: time.Now}
}

// DailyBill builds the class bill for one calendar day in the business
// timezone. Every confirmed session of that day appears on the bill, already
// paid ones included, so a bill can be regenerated for reprinting. Sessions
// not yet paid are marked paid as part of generation. day is YYYY-MM-DD and
// defaults to today.
func (s *BillingService) DailyBill(ctx context.Context, actor *models.JWTClaims, day string) (*dto.DailyBillResponse, error) {
	if err := Authorize(actor, OpGenerateBill); err != nil {
		return nil, err
	}
	if day == "" {
		day = s.now().In(s.loc).Format(dateLayout)
	}
	from, to, err := parseDateRange(day, day, s.loc)
	if err != nil {
		return nil, err
	}

	confirmed, err := s.sessions.ListConfirmed(ctx, models.SessionFilter{Start: from, End: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load confirmed sessions")
	}

	if len(confirmed) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyBill, "no confirmed classes on "+day)
	}

	bill := &dto.DailyBillResponse{
		InvoiceID:   invoiceID("CLS", *from, len(confirmed)),
		Day:         day,
		Teachers:    []dto.TeacherBillBlock{},
		GrandTotal:  decimal.Zero,
		Sessions:    len(confirmed),
		GeneratedAt: s.now().UTC(),
	}
	index := map[string]int{}
	ids := make([]string, 0, len(confirmed))
	for i := range confirmed {
		session := &confirmed[i]
		ids = append(ids, session.ID)
		amount := session.Amount()

		pos, ok := index[session.TeacherID]
		if !ok {
			pos = len(bill.Teachers)
			index[session.TeacherID] = pos
			bill.Teachers = append(bill.Teachers, dto.TeacherBillBlock{
				TeacherID:   session.TeacherID,
				TeacherName: session.TeacherName,
				TeacherTpin: session.TeacherTpin,
				Lines:       []dto.BillLine{},
				Subtotal:    decimal.Zero,
			})
		}
		block := &bill.Teachers[pos]
		block.Lines = append(block.Lines, dto.BillLine{
			SessionID:   session.ID,
			CourseName:  session.CourseName,
			SessionName: session.Name,
			ConfirmedAt: session.ConfirmedAt,
			Hours:       session.Hours,
			HourlyRate:  session.HourlyRate,
			Amount:      amount,
		})
		block.Subtotal = block.Subtotal.Add(amount)
		bill.GrandTotal = bill.GrandTotal.Add(amount)
	}
	sort.Slice(bill.Teachers, func(i, j int) bool {
		return bill.Teachers[i].TeacherName < bill.Teachers[j].TeacherName
	})

	marked, err := s.sessions.BulkMarkPaid(ctx, ids, s.now().UTC())
	if err != nil {
		// The bill content is already assembled. Report the failure rather
		// than returning a bill whose payment state is unknown.
		s.logger.Error("daily bill paid marking failed", zap.String("day", day), zap.Int("marked", marked), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark billed sessions paid")
	}
	bill.MarkedPaid = marked
	if s.metrics != nil {
		s.metrics.RecordBillGenerated("classes")
	}
	s.logger.Info("daily class bill generated",
		zap.String("invoice_id", bill.InvoiceID),
		zap.String("day", day),
		zap.Int("sessions", bill.Sessions),
		zap.Int("marked_paid", marked))
	return bill, nil
}

// UploadsBill builds the uploads bill for a date range: uploaded task count
// times the admin-chosen per-video rate, plus an optional tip. Read only.
func (s *BillingService) UploadsBill(ctx context.Context, actor *models.JWTClaims, req dto.UploadBillRequest) (*dto.UploadBillResponse, error) {
	if err := Authorize(actor, OpGenerateBill); err != nil {
		return nil, err
	}
	if req.PerVideoRate == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "per_video_rate is required")
	}
	rate, err := parsePositiveDecimal(req.PerVideoRate, decimal.Zero, "per_video_rate")
	if err != nil {
		return nil, err
	}
	tip, err := parseNonNegativeDecimal(req.Tip, decimal.Zero, "tip")
	if err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(req.Start, req.End, s.loc)
	if err != nil {
		return nil, err
	}

	tasks, err := s.uploads.ListUploadedBetween(ctx, models.UploadTaskFilter{Start: from, End: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load uploaded tasks")
	}
	if len(tasks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyBill, "no uploaded videos in the requested period")
	}

	subtotal := rate.Mul(decimal.NewFromInt(int64(len(tasks))))
	bill := &dto.UploadBillResponse{
		InvoiceID:    invoiceID("UPL", s.now().In(s.loc), len(tasks)),
		Period:       billPeriod(req.Start, req.End),
		Lines:        make([]dto.UploadBillLine, 0, len(tasks)),
		Videos:       len(tasks),
		PerVideoRate: rate,
		Subtotal:     subtotal,
		Tip:          tip,
		GrandTotal:   subtotal.Add(tip),
		GeneratedAt:  s.now().UTC(),
	}
	for _, task := range tasks {
		line := dto.UploadBillLine{
			TaskID:      task.ID,
			CourseName:  task.CourseName,
			SessionName: task.SessionName,
			TeacherName: task.TeacherName,
			TeacherTpin: task.TeacherTpin,
			UploadedAt:  task.UploadedAt,
			Amount:      rate,
		}
		bill.Lines = append(bill.Lines, line)
	}
	if s.metrics != nil {
		s.metrics.RecordBillGenerated("uploads")
	}
	s.logger.Info("uploads bill generated",
		zap.String("invoice_id", bill.InvoiceID),
		zap.String("period", bill.Period),
		zap.Int("videos", bill.Videos))
	return bill, nil
}

func invoiceID(prefix string, day time.Time, count int) string {
	return fmt.Sprintf("%s-%s-%d", prefix, day.Format("20060102"), count)
}

func billPeriod(start, end string) string {
	switch {
	case start == "" && end == "":
		return "all time"
	case start == "":
		return "until " + end
	case end == "":
		return "from " + start
	default:
		return start + " to " + end
	}
}
