package usage

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dukex/pcp/pkg/persistence"
)

const topPromptsLimit = 10

type PromptCount struct {
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Dashboard struct {
	TotalPrompts  int           `json:"total_prompts"`
	TotalVersions int           `json:"total_versions"`
	TotalExpands  int64         `json:"total_expands"`
	Expands24h    int           `json:"expands_24h"`
	AvgLatencyMS  float64       `json:"avg_latency_ms"`
	ErrorRatePct  float64       `json:"error_rate_pct"`
	TopPrompts    []PromptCount `json:"top_prompts"`
	DailyUsage    []DailyCount  `json:"daily_usage"`
}

type Stats struct {
	prompts persistence.PromptRepository
	usage   persistence.UsageRepository
}

func NewStats(p persistence.Persistence) *Stats {
	return &Stats{prompts: p.PromptRepository(), usage: p.UsageRepository()}
}

// Dashboard summarizes stored usage as of now.
func (s *Stats) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	now = now.UTC()

	prompts, err := s.prompts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	d := &Dashboard{TotalPrompts: len(prompts), TopPrompts: []PromptCount{}, DailyUsage: []DailyCount{}}

	for _, p := range prompts {
		versions, err := s.prompts.ListVersions(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %s: %w", p.Name, err)
		}

		d.TotalVersions += len(versions)
	}

	d.TotalExpands, err = s.usage.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}

	records, err := s.usage.ListSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}

	var (
		latency  int64
		failures int
		weekAgo  = now.Add(-7 * 24 * time.Hour)
		dayAgo   = now.Add(-24 * time.Hour)
		byPrompt = map[string]*PromptCount{}
		latSum   = map[string]int64{}
		byDay    = map[string]int{}
	)

	for _, r := range records {
		latency += r.LatencyMS

		if !r.Success {
			failures++
		}

		if !r.CreatedAt.Before(dayAgo) {
			d.Expands24h++
		}

		if r.CreatedAt.Before(weekAgo) {
			continue
		}

		pc, ok := byPrompt[r.PromptName]
		if !ok {
			pc = &PromptCount{Name: r.PromptName}
			byPrompt[r.PromptName] = pc
		}

		pc.Count++
		latSum[r.PromptName] += r.LatencyMS
		byDay[r.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	if len(records) > 0 {
		d.AvgLatencyMS = round1(float64(latency) / float64(len(records)))
		d.ErrorRatePct = round1(float64(failures) / float64(len(records)) * 100)
	}

	for name, pc := range byPrompt {
		pc.AvgLatencyMS = round1(float64(latSum[name]) / float64(pc.Count))
		d.TopPrompts = append(d.TopPrompts, *pc)
	}

	slices.SortFunc(d.TopPrompts, func(a, b PromptCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	if len(d.TopPrompts) > topPromptsLimit {
		d.TopPrompts = d.TopPrompts[:topPromptsLimit]
	}

	for day, count := range byDay {
		d.DailyUsage = append(d.DailyUsage, DailyCount{Date: day, Count: count})
	}

	slices.SortFunc(d.DailyUsage, func(a, b DailyCount) int {
		return cmp.Compare(a.Date, b.Date)
	})

	return d, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
