package vision

import (
	"bytes"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/hub/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// analysisSchema constrains the types of the fields the model may return. Missing
// fields are allowed and filled with defaults.
const analysisSchema = `{
  "type": "object",
  "properties": {
    "general_description": {"type": "string"},
    "objects_detected": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "description": {"type": "string"},
          "position": {"type": ["string", "null"]}
        },
        "required": ["name"]
      }
    },
    "color_palette": {
      "type": "object",
      "properties": {
        "dominant_colors": {"type": "array", "items": {"type": "string"}},
        "color_harmony": {"type": "string"},
        "mood": {"type": "string"},
        "accessibility": {"type": "string"}
      }
    },
    "marketing_insights": {
      "type": "object",
      "properties": {
        "target_audience": {"type": "string"},
        "brand_positioning": {"type": "string"},
        "emotional_appeal": {"type": "string"},
        "call_to_action": {"type": "string"},
        "marketing_channels": {"type": "array", "items": {"type": "string"}}
      }
    },
    "key_message": {"type": "string"},
    "composition_analysis": {"type": "string"},
    "improvement_suggestions": {"type": "array", "items": {"type": "string"}},
    "confidence_score": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

// replyShape is shown to the model as the structure to answer with.
const replyShape = `{
  "general_description": "string",
  "objects_detected": [
    {"name": "string", "confidence": 0.95, "description": "string", "position": "string"}
  ],
  "color_palette": {
    "dominant_colors": ["#hex1", "#hex2", "#hex3"],
    "color_harmony": "string",
    "mood": "string",
    "accessibility": "string"
  },
  "marketing_insights": {
    "target_audience": "string",
    "brand_positioning": "string",
    "emotional_appeal": "string",
    "call_to_action": "string",
    "marketing_channels": ["channel1", "channel2"]
  },
  "key_message": "string",
  "composition_analysis": "string",
  "improvement_suggestions": ["suggestion1", "suggestion2", "suggestion3"],
  "confidence_score": 0.85
}`

const unstructuredConfidence = 0.3

var (
	compiledSchema = mustCompile(analysisSchema)
	jsonBlock      = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	jsonObject     = regexp.MustCompile(`(?s)\{.*\}`)
)

func mustCompile(schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inline://analysis", bytes.NewReader([]byte(schema))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("inline://analysis")
}

// defaults fill the fields the model left out.
func defaults() map[string]any {
	return map[string]any{
		"general_description":  "Descrição não fornecida",
		"key_message":          "Mensagem não identificada",
		"composition_analysis": "Análise de composição não realizada",
		"confidence_score":     0.5,
		"objects_detected":     []any{},
		"color_palette": map[string]any{
			"dominant_colors": []any{"#000000"},
			"color_harmony":   "Não determinado",
			"mood":            "Neutro",
			"accessibility":   "Não avaliado",
		},
		"marketing_insights": map[string]any{
			"target_audience":    "Público geral",
			"brand_positioning":  "Neutro",
			"emotional_appeal":   "Informativo",
			"call_to_action":     "Saiba mais",
			"marketing_channels": []any{"Digital"},
		},
		"improvement_suggestions": []any{"Análise mais detalhada necessária"},
	}
}

// parseAnalysis reads the model reply. It returns false when the reply is not a
// JSON object matching the analysis schema, in which case the analysis wraps the
// raw text with a low confidence.
func parseAnalysis(reply string) (agent.ImageAnalysis, bool) {
	raw := extractJSON(reply)
	var doc any
	if !gjson.Valid(raw) || json.Unmarshal([]byte(raw), &doc) != nil {
		return unstructured(reply), false
	}
	obj, ok := doc.(map[string]any)
	if !ok || compiledSchema.Validate(obj) != nil {
		return unstructured(reply), false
	}
	for k, v := range defaults() {
		if cur, ok := obj[k]; !ok || cur == nil {
			obj[k] = v
		}
	}
	var out agent.ImageAnalysis
	if err := mapstructure.WeakDecode(obj, &out); err != nil {
		return unstructured(reply), false
	}
	return out, true
}

func extractJSON(reply string) string {
	if m := jsonBlock.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	if m := jsonObject.FindString(reply); m != "" {
		return m
	}
	return strings.TrimSpace(reply)
}

func unstructured(text string) agent.ImageAnalysis {
	desc := []rune(text)
	general := text
	if len(desc) > 500 {
		general = string(desc[:500]) + "..."
	}
	return agent.ImageAnalysis{
		GeneralDescription: general,
		ObjectsDetected: []agent.DetectedObject{{
			Name:        "Análise não estruturada",
			Confidence:  0.5,
			Description: "Resposta em formato de texto",
			Position:    "N/A",
		}},
		ColorPalette: agent.ColorPalette{
			DominantColors: []string{"#000000", "#FFFFFF"},
			ColorHarmony:   "Não determinado",
			Mood:           "Neutro",
			Accessibility:  "Não avaliado",
		},
		MarketingInsights: agent.MarketingInsights{
			TargetAudience:    "Não determinado",
			BrandPositioning:  "Não determinado",
			EmotionalAppeal:   "Neutro",
			CallToAction:      "Visualizar conteúdo",
			MarketingChannels: []string{"Digital", "Social Media"},
		},
		KeyMessage:          "Análise necessita de refinamento",
		CompositionAnalysis: "Análise visual básica realizada",
		ImprovementSuggestions: []string{
			"Reformular prompt para melhor estruturação",
			"Tentar novamente com imagem diferente",
			"Verificar qualidade da imagem",
		},
		ConfidenceScore: unstructuredConfidence,
	}
}
