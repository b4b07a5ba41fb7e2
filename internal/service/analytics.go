package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/repository"
)

// TimeRange selects an analytics window.
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	RangeAll TimeRange = "all"
)

// activeWindow is how recent lastActive must be to count a user as
// active, regardless of the selected range.
const activeWindow = 24 * time.Hour

// Bucket is one bar of the growth chart: signups whose createdAt falls
// in the half-open interval [Start, Start+width).
type Bucket struct {
	Start int64 `json:"start"` // epoch ms
	Count int   `json:"count"`
}

// Analytics is the admin dashboard payload.
type Analytics struct {
	Total     int      `json:"total"`
	Active    int      `json:"active"`
	New       int      `json:"new"`
	GrowthPct float64  `json:"growthPct"`
	Series    []Bucket `json:"series"`
}

// AnalyticsService derives time-bucketed growth analytics from raw
// profile records. Everything is reduced client-side from one full fetch
// — no store-side counting, grouping, or index-backed range queries.
type AnalyticsService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAnalyticsService(users repository.UserRepository, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{users: users, logger: logger}
}

// AdminAnalytics computes totals, the selected window's signup count, the
// growth percentage versus the immediately preceding equal-length window,
// and the chart series. now is a parameter so the window arithmetic is
// testable without a clock.
func (s *AnalyticsService) AdminAnalytics(ctx context.Context, r TimeRange, now time.Time) (*Analytics, error) {
	switch r {
	case Range24h, Range7d, Range30d, RangeAll:
	default:
		return nil, apperror.ValidationFailed("timeRange",
			fmt.Sprintf("unknown time range %q", r))
	}

	users, err := s.users.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching profiles for analytics: %w", err)
	}

	nowMs := now.UnixMilli()
	start := windowStart(now, r)
	prevStart := precedingWindowStart(now, r)
	series, seriesEnd := makeBuckets(now, r)

	out := &Analytics{
		Total:  len(users),
		Series: series,
	}

	var prevNew int
	for _, u := range users {
		if nowMs-u.LastActive < activeWindow.Milliseconds() {
			out.Active++
		}
		if u.CreatedAt >= start && u.CreatedAt < nowMs {
			out.New++
		}
		if u.CreatedAt >= prevStart && u.CreatedAt < start {
			prevNew++
		}
		placeInBucket(out.Series, seriesEnd, u.CreatedAt)
	}

	out.GrowthPct = GrowthPercent(out.New, prevNew)

	s.logger.Debug("analytics computed",
		slog.String("range", string(r)),
		slog.Int("total", out.Total),
		slog.Int("new", out.New),
	)
	return out, nil
}

// GrowthPercent compares a window's count against the preceding window.
// A zero preceding window with a non-zero current one is DEFINED as 100%
// growth — never undefined or infinite; zero against zero is 0%.
func GrowthPercent(current, previous int) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}

// windowStart returns the window's inclusive start in epoch ms.
// RangeAll means "since epoch".
func windowStart(now time.Time, r TimeRange) int64 {
	switch r {
	case Range24h:
		return now.Add(-24 * time.Hour).UnixMilli()
	case Range7d:
		return now.Add(-7 * 24 * time.Hour).UnixMilli()
	case Range30d:
		return now.Add(-30 * 24 * time.Hour).UnixMilli()
	default: // RangeAll
		return 0
	}
}

// precedingWindowStart returns the start of the equal-length window
// immediately before the selected one. For RangeAll the preceding window
// is empty by construction (nothing predates the epoch), which feeds the
// defined-as-100% growth rule for any non-zero current count.
func precedingWindowStart(now time.Time, r TimeRange) int64 {
	start := windowStart(now, r)
	if r == RangeAll {
		return 0
	}
	return start - (now.UnixMilli() - start)
}

// makeBuckets lays out the chart's fixed sub-intervals:
// 24 hourly buckets for 24h, 7/30 daily buckets for 7d/30d, and the last
// 12 calendar months for all. Each bucket covers [Start, next.Start);
// the returned end closes the FINAL bucket — now for the even ranges, the
// first day of the next month for all. Calendar months have unequal
// lengths, so the final end must be a real boundary, not the previous
// bucket's width replayed.
func makeBuckets(now time.Time, r TimeRange) ([]Bucket, int64) {
	switch r {
	case Range24h:
		return evenBuckets(now, 24, time.Hour), now.UnixMilli()
	case Range7d:
		return evenBuckets(now, 7, 24*time.Hour), now.UnixMilli()
	case Range30d:
		return evenBuckets(now, 30, 24*time.Hour), now.UnixMilli()
	default: // RangeAll
		buckets := make([]Bucket, 12)
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -11, 0)
		for i := range buckets {
			buckets[i].Start = first.AddDate(0, i, 0).UnixMilli()
		}
		return buckets, first.AddDate(0, 12, 0).UnixMilli()
	}
}

func evenBuckets(now time.Time, n int, width time.Duration) []Bucket {
	buckets := make([]Bucket, n)
	start := now.Add(-time.Duration(n) * width)
	for i := range buckets {
		buckets[i].Start = start.Add(time.Duration(i) * width).UnixMilli()
	}
	return buckets
}

// placeInBucket counts createdAt into its half-open bucket, if any.
// Buckets are in ascending order; end closes the final bucket's interval.
func placeInBucket(buckets []Bucket, end int64, createdAt int64) {
	for i := len(buckets) - 1; i >= 0; i-- {
		if createdAt >= buckets[i].Start {
			if i < len(buckets)-1 {
				end = buckets[i+1].Start
			}
			if createdAt < end {
				buckets[i].Count++
			}
			return
		}
	}
}
