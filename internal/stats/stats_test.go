package stats_test

import (
	"math"
	"testing"

	"github.com/vity-loop/vity-loop/internal/stats"
	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

func TestWilsonInterval(t *testing.T) {
	lower, upper := stats.WilsonInterval(0, 0, 0.95)
	if lower != 0 || upper != 0 {
		t.Errorf("got [%f, %f] for no trials, want [0, 0]", lower, upper)
	}

	// 50/100 at 95%: interval is symmetric around 0.5, roughly ±0.096.
	lower, upper = stats.WilsonInterval(50, 100, 0.95)
	if math.Abs(lower-0.404) > 0.005 || math.Abs(upper-0.596) > 0.005 {
		t.Errorf("got [%f, %f] for 50/100, want about [0.404, 0.596]", lower, upper)
	}

	lower, _ = stats.WilsonInterval(0, 10, 0.95)
	if lower != 0 {
		t.Errorf("got lower %f for 0/10, want clamped to 0", lower)
	}
	_, upper = stats.WilsonInterval(10, 10, 0.95)
	if upper != 1 {
		t.Errorf("got upper %f for 10/10, want clamped to 1", upper)
	}

	// Wider confidence means a wider interval.
	narrowLower, narrowUpper := stats.WilsonInterval(30, 100, 0.90)
	wideLower, wideUpper := stats.WilsonInterval(30, 100, 0.99)
	if wideUpper-wideLower <= narrowUpper-narrowLower {
		t.Error("99% interval not wider than 90%")
	}
}

func TestSignificanceTest(t *testing.T) {
	if got := stats.SignificanceTest(5, 10, 3, 0); got != 0.5 {
		t.Errorf("got %f with no B data, want 0.5", got)
	}
	if got := stats.SignificanceTest(0, 10, 0, 10); got != 0.5 {
		t.Errorf("got %f for identical zero rates, want 0.5", got)
	}

	equal := stats.SignificanceTest(20, 100, 20, 100)
	if math.Abs(equal-0.5) > 1e-6 {
		t.Errorf("got %f for equal rates, want 0.5", equal)
	}

	better := stats.SignificanceTest(50, 100, 10, 100)
	if better < 0.95 {
		t.Errorf("got %f for a clear winner, want >= 0.95", better)
	}
	worse := stats.SignificanceTest(10, 100, 50, 100)
	if worse > 0.05 {
		t.Errorf("got %f for a clear loser, want <= 0.05", worse)
	}
	if math.Abs(better+worse-1) > 1e-6 {
		t.Errorf("test not symmetric: %f + %f != 1", better, worse)
	}
}

func TestAnalyze(t *testing.T) {
	catalog := variants.Builtin()
	outcomes := []store.VariantOutcome{
		{Variant: variants.VariantA, Impressions: 100, Conversions: 10},
		{Variant: variants.VariantB, Impressions: 100, Conversions: 30},
	}

	result := stats.Analyze(catalog, outcomes)

	if len(result.Variants) != len(variants.All()) {
		t.Fatalf("got %d variants, want %d", len(result.Variants), len(variants.All()))
	}

	if result.Variants[result.Leading].ID != variants.VariantB {
		t.Errorf("got leading %s, want B", result.Variants[result.Leading].ID)
	}
	if !result.Confident {
		t.Errorf("30%% vs 10%% over 100 trials each should be significant, got %f", result.ConfidenceLevel)
	}

	b := result.Variants[1]
	if b.Rate != 0.3 || b.Impressions != 100 || b.Conversions != 30 {
		t.Errorf("variant B stats wrong: %+v", b)
	}
	if b.Name != catalog[variants.VariantB].Name {
		t.Errorf("got name %q, want catalog name", b.Name)
	}
	if b.CILower >= b.Rate || b.CIUpper <= b.Rate {
		t.Errorf("rate %f outside its own interval [%f, %f]", b.Rate, b.CILower, b.CIUpper)
	}

	// Treatments that never ran report zeroes, not missing entries.
	for _, v := range result.Variants[2:] {
		if v.Impressions != 0 || v.Rate != 0 || v.CILower != 0 || v.CIUpper != 0 {
			t.Errorf("unshown variant %s has nonzero stats: %+v", v.ID, v)
		}
	}
}

func TestAnalyze_NoData(t *testing.T) {
	result := stats.Analyze(variants.Builtin(), nil)

	if result.Leading != 0 {
		t.Errorf("got leading %d with no data, want 0", result.Leading)
	}
	if result.Confident {
		t.Error("confident with no data")
	}
}
