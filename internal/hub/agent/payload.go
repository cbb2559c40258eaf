package agent

// PayloadKind tags the variant of a Payload.
type PayloadKind string

const (
	KindCitations      PayloadKind = "citations"
	KindDiagram        PayloadKind = "diagram"
	KindClassification PayloadKind = "classification"
	KindResearch       PayloadKind = "research"
)

type payloadField struct {
	key   string
	value any
}

// Payload is the structured part of a result. The set of variants is closed:
// *Citations, *Diagram, *Classification and *Research.
type Payload interface {
	Kind() PayloadKind
	fields() []payloadField
}

// Source is a document an answer is grounded on.
type Source struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Score    *float64       `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Citations is the payload of retrieval backed answers.
type Citations struct {
	Sources    []Source `json:"sources"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (c *Citations) Kind() PayloadKind { return KindCitations }

func (c *Citations) fields() []payloadField {
	var out []payloadField
	if len(c.Sources) > 0 {
		out = append(out, payloadField{"sources", c.Sources})
	}
	if c.Confidence != nil {
		out = append(out, payloadField{"confidence", *c.Confidence})
	}
	return out
}

// Diagram is a generated Mermaid diagram.
type Diagram struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
}

func (d *Diagram) Kind() PayloadKind { return KindDiagram }

func (d *Diagram) fields() []payloadField {
	return []payloadField{{"diagram", d}}
}

// DetectedObject is one object found in an image.
type DetectedObject struct {
	Name        string  `json:"name" mapstructure:"name"`
	Confidence  float64 `json:"confidence" mapstructure:"confidence"`
	Description string  `json:"description" mapstructure:"description"`
	Position    string  `json:"position,omitempty" mapstructure:"position"`
}

// ColorPalette describes the colors of an image.
type ColorPalette struct {
	DominantColors []string `json:"dominant_colors" mapstructure:"dominant_colors"`
	ColorHarmony   string   `json:"color_harmony" mapstructure:"color_harmony"`
	Mood           string   `json:"mood" mapstructure:"mood"`
	Accessibility  string   `json:"accessibility" mapstructure:"accessibility"`
}

// MarketingInsights is the marketing reading of an image.
type MarketingInsights struct {
	TargetAudience    string   `json:"target_audience" mapstructure:"target_audience"`
	BrandPositioning  string   `json:"brand_positioning" mapstructure:"brand_positioning"`
	EmotionalAppeal   string   `json:"emotional_appeal" mapstructure:"emotional_appeal"`
	CallToAction      string   `json:"call_to_action" mapstructure:"call_to_action"`
	MarketingChannels []string `json:"marketing_channels" mapstructure:"marketing_channels"`
}

// ImageAnalysis is the structured analysis returned by the vision model.
type ImageAnalysis struct {
	GeneralDescription     string            `json:"general_description" mapstructure:"general_description"`
	ObjectsDetected        []DetectedObject  `json:"objects_detected" mapstructure:"objects_detected"`
	ColorPalette           ColorPalette      `json:"color_palette" mapstructure:"color_palette"`
	MarketingInsights      MarketingInsights `json:"marketing_insights" mapstructure:"marketing_insights"`
	KeyMessage             string            `json:"key_message" mapstructure:"key_message"`
	CompositionAnalysis    string            `json:"composition_analysis" mapstructure:"composition_analysis"`
	ImprovementSuggestions []string          `json:"improvement_suggestions" mapstructure:"improvement_suggestions"`
	ConfidenceScore        float64           `json:"confidence_score" mapstructure:"confidence_score"`
}

// Classification is the payload of the image agent.
type Classification struct {
	ImageURL     string        `json:"image_url"`
	AnalysisType string        `json:"analysis_type"`
	Analysis     ImageAnalysis `json:"analysis"`
}

func (c *Classification) Kind() PayloadKind { return KindClassification }

func (c *Classification) fields() []payloadField {
	return []payloadField{
		{"classification", c},
		{"confidence", c.Analysis.ConfidenceScore},
	}
}

// ToolProfile is what the research workflow learned about one tool.
type ToolProfile struct {
	Name                    string   `json:"name"`
	Description             string   `json:"description"`
	WebsiteURL              string   `json:"website_url"`
	PricingModel            string   `json:"pricing_model"`
	IsOpenSource            *bool    `json:"is_open_source,omitempty"`
	TechStack               []string `json:"tech_stack"`
	APIAvailable            *bool    `json:"api_available,omitempty"`
	LanguageSupport         []string `json:"language_support"`
	IntegrationCapabilities []string `json:"integration_capabilities"`
}

// Research is the payload of the research workflow.
type Research struct {
	Query          string        `json:"query"`
	Tools          []ToolProfile `json:"tools"`
	Recommendation string        `json:"recommendation"`
}

func (r *Research) Kind() PayloadKind { return KindResearch }

func (r *Research) fields() []payloadField {
	return []payloadField{{"research", r}}
}

// Ptr returns a pointer to v, for optional payload fields.
func Ptr[T any](v T) *T {
	return &v
}
