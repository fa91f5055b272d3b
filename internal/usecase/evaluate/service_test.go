package evaluate

import (
	"context"
	"strings"
	"testing"
	"time"

	domcatalog "github.com/kiosklabs/shelfscan/internal/domain/catalog"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/detection"
	"github.com/kiosklabs/shelfscan/internal/domain/scoring"
)

// --- Mocks ---

type mockCatalog struct {
	entries []domcatalog.Entry
	byClass map[string]int
}

func newMockCatalog(entries ...domcatalog.Entry) *mockCatalog {
	m := &mockCatalog{entries: entries, byClass: make(map[string]int, len(entries))}
	for i := range entries {
		m.byClass[entries[i].ClassID()] = i
	}
	return m
}

func (m *mockCatalog) Lookup(classID string) (domcatalog.Entry, bool) {
	i, ok := m.byClass[classID]
	if !ok {
		return domcatalog.Entry{}, false
	}
	return m.entries[i], true
}

func (m *mockCatalog) All() []domcatalog.Entry { return m.entries }

type mockCache struct {
	stored map[string]decision.Evaluation
	puts   int
}

func newMockCache() *mockCache {
	return &mockCache{stored: make(map[string]decision.Evaluation)}
}

func (m *mockCache) Get(_ context.Context, fp string) (decision.Evaluation, bool) {
	ev, ok := m.stored[fp]
	return ev, ok
}

func (m *mockCache) Put(_ context.Context, fp string, ev decision.Evaluation) {
	m.stored[fp] = ev
	m.puts++
}

type mockStats struct {
	records   int
	successes int
}

func (m *mockStats) Record(_ float64, succeeded bool) {
	m.records++
	if succeeded {
		m.successes++
	}
}

// --- Helpers ---

var testBias = map[string]int{"Beverages": 5, "Canned Goods": -5, "Candy": -10}

func testCatalog() *mockCatalog {
	return newMockCatalog(
		domcatalog.NewEntry("coke", "Coca-Cola 330ml", "4800888100014", 20, "Beverages", "Coca-Cola", "can", "330ml", 200),
		domcatalog.NewEntry("bear brand", "Bear Brand Milk 300ml", "4800361414869", 35, "Beverages", "Bear Brand", "can", "300ml", 120),
		domcatalog.NewEntry("ligo", "Ligo Sardines 155g", "4800092450048", 28, "Canned Goods", "Ligo", "can", "155g", 100),
		domcatalog.NewEntry("cheezy", "Cheezy Cheese Curls", "4800194113434", 7, "Snacks", "Oishi", "pack", "30g", 200),
		domcatalog.NewEntry("oishi crackers", "Oishi Crackers", "4800194113465", 8.5, "Snacks", "Oishi", "pack", "30g", 150),
		domcatalog.NewEntry("mr chips", "Mr. Chips", "4800194113458", 7, "Snacks", "Jack n Jill", "pack", "30g", 180),
	)
}

func newTestService(cat *mockCatalog, cache *mockCache, stats *mockStats) *Service {
	return New(cat, cache, stats,
		scoring.NewAdjuster(testBias),
		decision.Thresholds{High: 75, Medium: 50, Low: 25},
		SuggestionLimits{Confirm: 3, Uncertain: 4, Fallback: 4},
	)
}

func raw(classID string, confidence float64) detection.Raw {
	return detection.Raw{ClassID: classID, Confidence: confidence}
}

// --- Tests ---

func TestEvaluate_SingleHigh_AutoAccept(t *testing.T) {
	cache := newMockCache()
	stats := &mockStats{}
	svc := newTestService(testCatalog(), cache, stats)

	// coke at 0.90 raw: 90 + 5 bias = 95, above the high bar.
	res := svc.Evaluate(context.Background(), []detection.Raw{raw("coke", 0.90)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeAutoAccept {
		t.Fatalf("outcome = %q, want auto_accept", d.Outcome())
	}
	primary, _ := d.Primary()
	if primary.AdjustedConfidence() != 95 {
		t.Errorf("adjusted = %v, want 95", primary.AdjustedConfidence())
	}
	if len(res.Evaluation.Suggestions()) != 0 {
		t.Errorf("auto-accept must not carry suggestions, got %d", len(res.Evaluation.Suggestions()))
	}
	if !strings.Contains(res.Evaluation.Message(), "Coca-Cola 330ml detected") {
		t.Errorf("message = %q", res.Evaluation.Message())
	}
	if res.Cached {
		t.Error("fresh evaluation reported as cached")
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
	if stats.records != 1 || stats.successes != 1 {
		t.Errorf("stats = %d/%d, want 1/1", stats.records, stats.successes)
	}
}

func TestEvaluate_CacheHit_SkipsPipeline(t *testing.T) {
	cache := newMockCache()
	stats := &mockStats{}
	svc := newTestService(testCatalog(), cache, stats)

	first := svc.Evaluate(context.Background(), []detection.Raw{raw("coke", 0.90)}, "fp1", time.Time{})
	second := svc.Evaluate(context.Background(), nil, "fp1", time.Time{})

	if !second.Cached {
		t.Fatal("second evaluation should be a cache hit")
	}
	if second.Evaluation.Message() != first.Evaluation.Message() {
		t.Errorf("cached message %q differs from original %q",
			second.Evaluation.Message(), first.Evaluation.Message())
	}
	if cache.puts != 1 {
		t.Errorf("cache hit must not re-store: puts = %d", cache.puts)
	}
	// Both requests count toward stats.
	if stats.records != 2 {
		t.Errorf("stats records = %d, want 2", stats.records)
	}
}

func TestEvaluate_DuplicateClass_DedupedToAutoAccept(t *testing.T) {
	svc := newTestService(testCatalog(), newMockCache(), &mockStats{})

	// The same product seen twice must not trigger a choice.
	res := svc.Evaluate(context.Background(),
		[]detection.Raw{raw("coke", 0.80), raw("coke", 0.60)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeAutoAccept {
		t.Fatalf("outcome = %q, want auto_accept", d.Outcome())
	}
	primary, _ := d.Primary()
	if primary.AdjustedConfidence() != 85 {
		t.Errorf("kept adjusted = %v, want 85 (stronger duplicate)", primary.AdjustedConfidence())
	}
}

func TestEvaluate_MediumConfidence_ConfirmWithSuggestions(t *testing.T) {
	svc := newTestService(testCatalog(), newMockCache(), &mockStats{})

	// ligo at 0.70 raw: 70 - 5 bias = 65, medium band.
	res := svc.Evaluate(context.Background(), []detection.Raw{raw("ligo", 0.70)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeConfirm || d.Level() != decision.LevelMedium {
		t.Fatalf("got %q/%q, want confirm/medium", d.Outcome(), d.Level())
	}
	if !strings.Contains(res.Evaluation.Message(), "Is this Ligo Sardines 155g? (65% confidence)") {
		t.Errorf("message = %q", res.Evaluation.Message())
	}

	sugg := res.Evaluation.Suggestions()
	if len(sugg) == 0 {
		t.Fatal("confirm must carry suggestions")
	}
	if !sugg[0].Highlighted || sugg[0].ClassID != "ligo" {
		t.Errorf("first suggestion = %+v, want highlighted primary", sugg[0])
	}
	if sugg[0].Reason != "65% match" {
		t.Errorf("primary reason = %q", sugg[0].Reason)
	}
}

func TestEvaluate_LowConfidence_UsesUncertainLimit(t *testing.T) {
	svc := New(testCatalog(), newMockCache(), &mockStats{},
		scoring.NewAdjuster(testBias),
		decision.Thresholds{High: 75, Medium: 50, Low: 25},
		SuggestionLimits{Confirm: 1, Uncertain: 2, Fallback: 4},
	)

	// cheezy at 0.35 raw: 35 + 0 bias, low band. Snacks has three catalog
	// entries, so the uncertain limit of 2 caps the list.
	res := svc.Evaluate(context.Background(), []detection.Raw{raw("cheezy", 0.35)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeConfirm || d.Level() != decision.LevelLow {
		t.Fatalf("got %q/%q, want confirm/low", d.Outcome(), d.Level())
	}
	if res.Evaluation.Message() != "Uncertain detection. Please select the correct product." {
		t.Errorf("message = %q", res.Evaluation.Message())
	}
	if got := len(res.Evaluation.Suggestions()); got != 2 {
		t.Errorf("suggestion count = %d, want uncertain limit 2", got)
	}
}

func TestEvaluate_MultipleProducts_ChooseAmong(t *testing.T) {
	stats := &mockStats{}
	svc := newTestService(testCatalog(), newMockCache(), stats)

	res := svc.Evaluate(context.Background(),
		[]detection.Raw{raw("coke", 0.90), raw("ligo", 0.85)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeChooseAmong {
		t.Fatalf("outcome = %q, want choose_among", d.Outcome())
	}
	if len(d.Detections()) != 2 {
		t.Errorf("carried %d detections, want 2", len(d.Detections()))
	}
	// coke 95 and ligo 80, both above high.
	if res.Evaluation.Meta().HighConfidenceCount != 2 {
		t.Errorf("HighConfidenceCount = %d, want 2", res.Evaluation.Meta().HighConfidenceCount)
	}
	if !strings.Contains(res.Evaluation.Message(), "Found 2 products. 2 with high confidence.") {
		t.Errorf("message = %q", res.Evaluation.Message())
	}
	if stats.successes != 1 {
		t.Errorf("choose_among should count as success, got %d", stats.successes)
	}
}

func TestEvaluate_UnknownClass_DroppedSilently(t *testing.T) {
	svc := newTestService(testCatalog(), newMockCache(), &mockStats{})

	res := svc.Evaluate(context.Background(),
		[]detection.Raw{raw("not-in-catalog", 0.95), raw("coke", 0.90)}, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeAutoAccept {
		t.Fatalf("outcome = %q, want auto_accept (unknown class dropped)", d.Outcome())
	}
	primary, _ := d.Primary()
	if primary.ClassID() != "coke" {
		t.Errorf("primary = %q, want coke", primary.ClassID())
	}
}

func TestEvaluate_NoDetections_NoMatchWithFallback(t *testing.T) {
	stats := &mockStats{}
	svc := newTestService(testCatalog(), newMockCache(), stats)

	res := svc.Evaluate(context.Background(), nil, "fp1", time.Time{})

	d := res.Evaluation.Decision()
	if d.Outcome() != decision.OutcomeNoMatch {
		t.Fatalf("outcome = %q, want no_match", d.Outcome())
	}
	if res.Evaluation.Message() != "No products detected. Please adjust position, lighting, or try manual entry." {
		t.Errorf("message = %q", res.Evaluation.Message())
	}

	sugg := res.Evaluation.Suggestions()
	if len(sugg) != 4 {
		t.Fatalf("fallback count = %d, want 4", len(sugg))
	}
	// Catalog order.
	if sugg[0].ClassID != "coke" || sugg[1].ClassID != "bear brand" {
		t.Errorf("fallback order: %q, %q", sugg[0].ClassID, sugg[1].ClassID)
	}
	if stats.successes != 0 {
		t.Errorf("no_match must count as failure, successes = %d", stats.successes)
	}
}

func TestEvaluate_SmartSuggestions_CategoryThenBrand(t *testing.T) {
	svc := New(testCatalog(), newMockCache(), &mockStats{},
		scoring.NewAdjuster(testBias),
		decision.Thresholds{High: 75, Medium: 50, Low: 25},
		SuggestionLimits{Confirm: 5, Uncertain: 8, Fallback: 10},
	)

	// cheezy at 0.60: Snacks, brand Oishi, medium band.
	res := svc.Evaluate(context.Background(), []detection.Raw{raw("cheezy", 0.60)}, "fp1", time.Time{})

	sugg := res.Evaluation.Suggestions()
	if len(sugg) < 2 {
		t.Fatalf("got %d suggestions", len(sugg))
	}
	if sugg[0].ClassID != "cheezy" || !sugg[0].Highlighted {
		t.Errorf("first suggestion = %+v", sugg[0])
	}
	// Same category next, with the similarity reason.
	if sugg[1].ClassID != "oishi crackers" {
		t.Errorf("second suggestion = %q, want same-category oishi crackers", sugg[1].ClassID)
	}
	if !strings.Contains(sugg[1].Reason, "similar to Cheezy Cheese Curls") {
		t.Errorf("second reason = %q", sugg[1].Reason)
	}
	// No class twice.
	seen := make(map[string]bool)
	for _, s := range sugg {
		if seen[s.ClassID] {
			t.Errorf("class %q suggested twice", s.ClassID)
		}
		seen[s.ClassID] = true
	}
}

func TestLookup(t *testing.T) {
	cache := newMockCache()
	stats := &mockStats{}
	svc := newTestService(testCatalog(), cache, stats)

	if _, ok := svc.Lookup(context.Background(), "absent", time.Time{}); ok {
		t.Fatal("unexpected hit for an unknown fingerprint")
	}
	if stats.records != 0 {
		t.Errorf("a miss must not record stats, got %d", stats.records)
	}

	svc.Evaluate(context.Background(), []detection.Raw{raw("coke", 0.90)}, "fp1", time.Time{})

	res, ok := svc.Lookup(context.Background(), "fp1", time.Time{})
	if !ok {
		t.Fatal("expected a hit after evaluation")
	}
	if !res.Cached {
		t.Error("lookup result must be marked cached")
	}
	if stats.records != 2 {
		t.Errorf("hit must record stats: records = %d, want 2", stats.records)
	}
}
