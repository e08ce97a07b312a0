package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// TemplateField is one key in the JSON response template shown to the
// oracle for a structured section.
type TemplateField struct {
	Key  string `yaml:"key" mapstructure:"key"`
	List bool   `yaml:"list" mapstructure:"list"`
	Hint string `yaml:"hint" mapstructure:"hint"`
}

// Section describes one field section processed for every record.
type Section struct {
	Name  string
	Kind  FieldKind
	Topic string
	// Template lists the keys the oracle is asked to return for structured
	// sections, in prompt order.
	Template []TemplateField
	// FallbackKeys are tried in order when a forced update has to append
	// the development mechanically.
	FallbackKeys []string
	// DroppedKeys are removed from both current and candidate content.
	DroppedKeys []string
}

// ParseFieldKind converts "text" or "structured" to a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return FieldText, nil
	case "structured", "":
		return FieldStructured, nil
	default:
		return FieldStructured, eris.Errorf("model: unknown section kind %q", s)
	}
}

// DefaultSections returns the bilateral-relations sections in processing
// order.
func DefaultSections() []Section {
	return []Section{
		{
			Name:  "security_cooperation",
			Kind:  FieldStructured,
			Topic: "defense and security cooperation",
			Template: []TemplateField{
				{Key: "defense_agreements", Hint: "Keep existing value or update with new agreements signed"},
				{Key: "joint_exercises", Hint: "Keep existing value or update with new major exercises completed"},
				{Key: "intelligence_sharing", Hint: "Keep existing value or update with new cooperation initiatives"},
				{Key: "regional_security_role", Hint: "Keep existing value or update with new role changes"},
			},
			FallbackKeys: []string{"defense_agreements", "joint_exercises"},
		},
		{
			Name:  "diplomatic_engagement",
			Kind:  FieldStructured,
			Topic: "diplomatic engagement",
			Template: []TemplateField{
				{Key: "recent_high_level_visits", Hint: "Keep existing value or update with new high-level visits"},
				{Key: "institutional_frameworks", Hint: "Keep existing value or update with new frameworks established"},
				{Key: "multilateral_cooperation", Hint: "Keep existing value or update with new multilateral initiatives"},
				{Key: "embassy_relations", Hint: "Keep existing value or update with changes in diplomatic status"},
			},
			FallbackKeys: []string{"recent_high_level_visits", "institutional_frameworks"},
		},
		{
			Name:  "economic_cooperation",
			Kind:  FieldStructured,
			Topic: "trade and economic cooperation",
			Template: []TemplateField{
				{Key: "trade_volume_estimate", Hint: "Keep existing value or update with new data if available"},
				{Key: "key_trade_sectors", List: true, Hint: "Keep existing array or add new sectors if found"},
				{Key: "investment_flows", Hint: "Keep existing value or update with new major investments"},
				{Key: "trade_agreements", Hint: "Keep existing value or update with new agreements signed"},
			},
			FallbackKeys: []string{"trade_agreements", "investment_flows"},
		},
		{
			Name:  "challenges_and_opportunities",
			Kind:  FieldStructured,
			Topic: "current challenges and cooperation opportunities",
			Template: []TemplateField{
				{Key: "current_challenges", List: true, Hint: "Keep existing array or add major new challenges"},
				{Key: "cooperation_opportunities", List: true, Hint: "Keep existing array or add significant new opportunities"},
			},
			FallbackKeys: []string{"current_challenges", "cooperation_opportunities"},
			DroppedKeys:  []string{"future_outlook"},
		},
		{
			Name:  "detailed_relationship_summary",
			Kind:  FieldText,
			Topic: "overall relationship summary",
		},
	}
}
