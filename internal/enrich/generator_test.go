package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-refresh/internal/model"
)

type capturingOracle struct {
	prompts []string
	resp    string
	err     error
}

func (o *capturingOracle) Generate(_ context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	return o.resp, o.err
}

func TestGenerator_StructuredPrompt(t *testing.T) {
	o := &capturingOracle{resp: "{}"}
	g := NewGenerator(o, "CRITICAL SOURCE RESTRICTIONS")

	resp, err := g.Generate(context.Background(), Request{
		RecordName:  "Germany",
		Section:     sectionNamed(t, "economic_cooperation"),
		Current:     model.NewStructured(map[string]model.Value{"trade_volume_estimate": model.StringValue("200 billion")}),
		Development: "New trade agreement signed in May 2025",
		Evidence:    "- Reuters: EU trade pact",
		Window:      "since 2025-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp)
	require.Len(t, o.prompts, 1)

	p := o.prompts[0]
	assert.Contains(t, p, "CRITICAL SOURCE RESTRICTIONS")
	assert.Contains(t, p, "CONSERVATIVE UPDATE INSTRUCTIONS")
	assert.Contains(t, p, "since 2025-03-01 for Germany")
	assert.Contains(t, p, "New trade agreement signed in May 2025")
	assert.Contains(t, p, "DIPLOMATIC FEEDS CONTEXT")
	assert.Contains(t, p, "200 billion")
	assert.Contains(t, p, `"trade_volume_estimate"`)
	assert.Contains(t, p, `"key_trade_sectors": [`)
	assert.Contains(t, p, Sentinel)
}

func TestGenerator_TextPromptDefaults(t *testing.T) {
	o := &capturingOracle{}
	g := NewGenerator(o, "")

	_, err := g.Generate(context.Background(), Request{
		RecordName:  "Japan",
		Section:     sectionNamed(t, "detailed_relationship_summary"),
		Current:     model.NewText("Long standing alliance."),
		Development: model.NoDevelopment,
	})
	require.NoError(t, err)

	p := o.prompts[0]
	assert.Contains(t, p, "COMPLETE REWRITE APPROACH")
	assert.Contains(t, p, "recent significant developments")
	assert.Contains(t, p, "Long standing alliance.")
	assert.NotContains(t, p, "DIPLOMATIC FEEDS CONTEXT")
}

func TestGenerator_ForcePromptListsDroppedKeys(t *testing.T) {
	o := &capturingOracle{}
	g := NewGenerator(o, "")

	_, err := g.Force(context.Background(), Request{
		RecordName:  "Japan",
		Section:     sectionNamed(t, "challenges_and_opportunities"),
		Current:     model.NewStructured(map[string]model.Value{"current_challenges": model.ListValue("supply chains")}),
		Development: "semiconductor export controls",
	})
	require.NoError(t, err)

	p := o.prompts[0]
	assert.Contains(t, p, "USER GAVE EXPLICIT PERMISSION")
	assert.Contains(t, p, "Do NOT include these fields: future_outlook")
	assert.Contains(t, p, "Completely recreate if related to semiconductor export controls")
}

func TestGenerator_WrapsOracleError(t *testing.T) {
	g := NewGenerator(&capturingOracle{err: assert.AnError}, "")

	_, err := g.Generate(context.Background(), Request{Section: sectionNamed(t, "security_cooperation")})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "enrich: generate security_cooperation")
}
