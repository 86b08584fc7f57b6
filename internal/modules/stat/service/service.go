package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/stat/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/export"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const exportPaymentLimit = 5000

type StatService interface {
	StudentStats(ctx context.Context, p authctx.Principal) (*dto.StudentStats, error)
	TutorStats(ctx context.Context, p authctx.Principal) (*dto.TutorStats, error)
	Report(ctx context.Context, rangeName string) (*dto.Report, error)
	ExportReport(ctx context.Context, rangeName string) (*excelize.File, error)
}

type statService struct {
	store store.Store
	now   func() time.Time
}

func NewStatService(st store.Store) StatService {
	return &statService{store: st, now: time.Now}
}

func (s *statService) StudentStats(ctx context.Context, p authctx.Principal) (*dto.StudentStats, error) {
	var stats dto.StudentStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.store.Tuitions().CountByStatus(gctx, &p.AccountID)
		stats.TuitionsByStatus = counts
		return apperror.FromStore(err, "tuition post")
	})
	g.Go(func() error {
		counts, err := s.store.Applications().CountByStatus(gctx, nil, &p.AccountID)
		stats.ApplicationsReceived = counts
		return apperror.FromStore(err, "application")
	})
	g.Go(func() error {
		summary, err := s.store.Payments().Summarize(gctx, paymentRepo.Filter{StudentID: &p.AccountID})
		stats.Payments = summary
		return apperror.FromStore(err, "payment")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *statService) TutorStats(ctx context.Context, p authctx.Principal) (*dto.TutorStats, error) {
	var stats dto.TutorStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.store.Applications().CountByStatus(gctx, &p.AccountID, nil)
		stats.ApplicationsByStatus = counts
		return apperror.FromStore(err, "application")
	})
	g.Go(func() error {
		summary, err := s.store.Payments().Summarize(gctx, paymentRepo.Filter{TutorID: &p.AccountID})
		stats.Earnings = summary
		return apperror.FromStore(err, "payment")
	})
	g.Go(func() error {
		account, err := s.store.Accounts().FindByID(gctx, p.AccountID)
		if err != nil {
			return apperror.FromStore(err, "account")
		}
		if account.Tutor != nil {
			stats.RatingAverage = account.Tutor.RatingAverage
			stats.RatingCount = account.Tutor.RatingCount
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// window maps a report range to its start and bucket unit.
func (s *statService) window(rangeName string) (string, time.Time, string) {
	now := s.now().UTC()
	switch rangeName {
	case "week":
		return "week", now.AddDate(0, 0, -7), "day"
	case "year":
		return "year", now.AddDate(-1, 0, 0), "month"
	default:
		return "month", now.AddDate(0, -1, 0), "day"
	}
}

func (s *statService) Report(ctx context.Context, rangeName string) (*dto.Report, error) {
	name, since, unit := s.window(rangeName)
	report := dto.Report{Range: name, Since: since, Unit: unit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.store.Accounts().CountByRole(gctx)
		report.AccountsByRole = counts
		return apperror.FromStore(err, "account")
	})
	g.Go(func() error {
		counts, err := s.store.Tuitions().CountByStatus(gctx, nil)
		report.TuitionsByStatus = counts
		return apperror.FromStore(err, "tuition post")
	})
	g.Go(func() error {
		counts, err := s.store.Applications().CountByStatus(gctx, nil, nil)
		report.ApplicationsByStatus = counts
		return apperror.FromStore(err, "application")
	})
	g.Go(func() error {
		summary, err := s.store.Payments().Summarize(gctx, paymentRepo.Filter{Since: &since})
		report.Payments = summary
		return apperror.FromStore(err, "payment")
	})
	g.Go(func() error {
		buckets, err := s.store.Accounts().SignupBuckets(gctx, since, unit)
		report.Signups = buckets
		return apperror.FromStore(err, "account")
	})
	g.Go(func() error {
		buckets, err := s.store.Tuitions().CreatedBuckets(gctx, since, unit)
		report.TuitionsCreated = buckets
		return apperror.FromStore(err, "tuition post")
	})
	g.Go(func() error {
		buckets, err := s.store.Payments().Buckets(gctx, since, unit)
		report.Revenue = buckets
		return apperror.FromStore(err, "payment")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *statService) ExportReport(ctx context.Context, rangeName string) (*excelize.File, error) {
	report, err := s.Report(ctx, rangeName)
	if err != nil {
		return nil, err
	}

	payments, _, err := s.store.Payments().FindAll(ctx, paymentRepo.Filter{
		Since: &report.Since,
		Limit: exportPaymentLimit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "payment")
	}

	summary := [][]string{
		{"Range", report.Range},
		{"Since", report.Since.Format(time.RFC3339)},
		{"Payments", fmt.Sprint(report.Payments.Count)},
		{"Revenue", report.Payments.Total.StringFixed(2)},
	}
	summary = append(summary, countRows("Accounts", report.AccountsByRole)...)
	summary = append(summary, countRows("Tuitions", report.TuitionsByStatus)...)
	summary = append(summary, countRows("Applications", report.ApplicationsByStatus)...)

	paymentRows := make([][]string, 0, len(payments))
	for _, p := range payments {
		paymentRows = append(paymentRows, []string{
			p.CreatedAt.Format(time.RFC3339),
			p.TransactionRef,
			p.ApplicationID.String(),
			p.TuitionPostID.String(),
			p.StudentID.String(),
			p.TutorID.String(),
			p.Amount.StringFixed(2),
			p.Currency,
		})
	}

	f, err := export.NewWorkbook([]export.SheetSpec{
		{Title: "Summary", Header: []string{"Metric", "Value"}, Rows: summary},
		{Title: "Signups", Header: []string{"Period", "Accounts"}, Rows: bucketRows(report.Signups, false)},
		{Title: "Tuitions", Header: []string{"Period", "Posts"}, Rows: bucketRows(report.TuitionsCreated, false)},
		{Title: "Revenue", Header: []string{"Period", "Payments", "Total"}, Rows: bucketRows(report.Revenue, true)},
		{
			Title:  "Payments",
			Header: []string{"Paid at", "Reference", "Application", "Tuition", "Student", "Tutor", "Amount", "Currency"},
			Rows:   paymentRows,
		},
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return f, nil
}

func countRows(prefix string, counts map[string]int64) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{prefix + " " + k, fmt.Sprint(counts[k])})
	}
	return rows
}

func bucketRows(buckets []entity.TimeBucket, withTotal bool) [][]string {
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		row := []string{b.Start.Format("2006-01-02"), fmt.Sprint(b.Count)}
		if withTotal {
			row = append(row, b.Total.StringFixed(2))
		}
		rows = append(rows, row)
	}
	return rows
}
