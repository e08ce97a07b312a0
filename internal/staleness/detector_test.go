package staleness

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func section(t *testing.T, name string) model.Section {
	t.Helper()
	for _, s := range model.DefaultSections() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("unknown section %s", name)
	return model.Section{}
}

func richStructured() model.FieldContent {
	return model.NewStructured(map[string]model.Value{
		"trade_volume_estimate": model.StringValue("$250B annually"),
		"key_trade_sectors":     model.ListValue("automotive", "machinery"),
		"investment_flows":      model.StringValue("Bidirectional FDI above $600B"),
		"trade_agreements":      model.StringValue("Covered by EU-US frameworks"),
	})
}

func TestEvaluate_EmptyStructuredSectionSkipsOracle(t *testing.T) {
	gen := &mockGenerator{}
	d := NewDetector(gen, Options{})

	dec := d.Evaluate(context.Background(), Input{
		RecordID:   "DEU",
		RecordName: "Germany",
		Section:    section(t, "economic_cooperation"),
		Content:    model.NewStructured(nil),
		Present:    true,
	})

	assert.Equal(t, model.VerdictNeedsUpdate, dec.Verdict)
	assert.Equal(t, ReasonInsufficient, dec.Reason)
	assert.True(t, dec.Structural)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestEvaluate_StructuralRule(t *testing.T) {
	d := NewDetector(&mockGenerator{}, Options{})

	tests := []struct {
		name    string
		content model.FieldContent
		present bool
		want    bool
	}{
		{"absent", model.FieldContent{}, false, true},
		{"short text", model.NewText("  Brief summary.  "), true, true},
		{"long text", model.NewText("The relationship remains close across trade, security and diplomacy."), true, false},
		{"two keys", model.NewStructured(map[string]model.Value{
			"a": model.StringValue("x"),
			"b": model.StringValue("y"),
		}), true, true},
		{"four keys", richStructured(), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Insufficient(tt.content, tt.present))
		})
	}
}

func TestEvaluate_OracleDecision(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return containsAll(p,
			"CRITICAL SOURCE RESTRICTIONS",
			"since 2025-05-01 (30 days ago)",
			"CURRENT economic_cooperation DATA FOR Germany",
			"$250B annually",
			"RELEVANT DIPLOMATIC FEEDS FOR GERMANY",
		)
	})).Return("DECISION: UPDATE NEEDED\nREASONING: new tariff deal\nNEW_DEVELOPMENTS: Tariff deal signed May 20, 2025", nil).Once()

	d := NewDetector(gen, Options{Restrictions: "CRITICAL SOURCE RESTRICTIONS - test"})
	dec := d.Evaluate(context.Background(), Input{
		RecordID:   "DEU",
		RecordName: "Germany",
		Section:    section(t, "economic_cooperation"),
		Content:    richStructured(),
		Present:    true,
		Evidence:   "RELEVANT DIPLOMATIC FEEDS FOR GERMANY:\n1. Reuters: tariffs",
		Window: SearchWindow(
			time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), true,
			time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC),
		),
	})

	require.Equal(t, model.VerdictNeedsUpdate, dec.Verdict)
	assert.Equal(t, "new tariff deal", dec.Reason)
	assert.Equal(t, "Tariff deal signed May 20, 2025", dec.Development)
	assert.False(t, dec.Structural)
	gen.AssertExpectations(t)
}

func TestEvaluate_OracleFailureMeansNoUpdate(t *testing.T) {
	for name, ret := range map[string]struct {
		text string
		err  error
	}{
		"error": {"", errors.New("all credentials exhausted")},
		"empty": {"   ", nil},
	} {
		t.Run(name, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("Generate", mock.Anything, mock.Anything).Return(ret.text, ret.err)

			dec := NewDetector(gen, Options{}).Evaluate(context.Background(), Input{
				RecordID: "FRA",
				Section:  section(t, "economic_cooperation"),
				Content:  richStructured(),
				Present:  true,
			})
			assert.Equal(t, model.VerdictNoUpdate, dec.Verdict)
			assert.Equal(t, ReasonAnalysisFailed, dec.Reason)
			assert.Equal(t, model.NoDevelopment, dec.Development)
		})
	}
}

func TestSearchWindow(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, DefaultWindow, SearchWindow(time.Time{}, false, now))
	assert.Equal(t, "since 2025-06-21 (10 days ago)",
		SearchWindow(time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), true, now))
	assert.Equal(t, "since 2025-07-05 (0 days ago)",
		SearchWindow(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), true, now))
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
