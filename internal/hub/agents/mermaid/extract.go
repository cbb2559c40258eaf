package mermaid

import (
	"regexp"
	"strings"
	"unicode"
)

const fallbackDiagram = `graph TD
    A[Início] --> B[Processo]
    B --> C[Decisão]
    C -->|Sim| D[Ação 1]
    C -->|Não| E[Ação 2]
    D --> F[Fim]
    E --> F`

const defaultExplanation = "Diagrama gerado conforme solicitado."

var defaultSuggestions = []string{
	"Considere adicionar mais detalhes se necessário",
	"Verifique se todos os elementos estão claramente rotulados",
	"Teste a renderização do diagrama",
}

var (
	mermaidBlock = regexp.MustCompile("(?is)```mermaid\\s*(.*?)\\s*```")
	anyBlock     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")

	diagramKeywords     = []string{"graph", "flowchart", "sequencediagram", "classdiagram", "statediagram", "gantt", "erdiagram", "journey"}
	explanationKeywords = []string{"explanation", "explicação", "descrição", "este diagrama"}
	suggestionKeywords  = []string{"suggestions", "sugestões", "melhorias", "improvements"}
)

// extractCode returns the diagram source from a model reply: the first mermaid
// fenced block, else the first fenced block, else the first run of lines
// starting at a diagram keyword. With none of those it returns the fallback
// diagram and false.
func extractCode(reply string) (string, bool) {
	if m := mermaidBlock.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := anyBlock.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	var lines []string
	inDiagram := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !inDiagram && containsAny(strings.ToLower(line), diagramKeywords) {
			inDiagram = true
		}
		if !inDiagram {
			continue
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), true
	}
	return fallbackDiagram, false
}

// extractExplanation returns the paragraph introduced by an explanation heading,
// else the first three prose lines of the reply.
func extractExplanation(reply string) string {
	lines := strings.Split(reply, "\n")
	var out []string
	capturing := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if !capturing && containsAny(lower, explanationKeywords) {
			capturing = true
			if strings.HasPrefix(lower, "explanation") || strings.HasPrefix(lower, "explicação") {
				continue
			}
		}
		if !capturing {
			continue
		}
		if line == "" {
			if len(out) > 0 {
				break
			}
			continue
		}
		if !strings.HasPrefix(line, "```") {
			out = append(out, line)
		}
	}
	if len(out) > 0 {
		return strings.Join(out, " ")
	}

	inCode := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		if len(out) == 3 {
			break
		}
	}
	if len(out) > 0 {
		return strings.Join(out, " ")
	}
	return defaultExplanation
}

// extractSuggestions returns the list items following a suggestions heading, or
// generic suggestions when there are none.
func extractSuggestions(reply string) []string {
	var out []string
	capturing := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if containsAny(strings.ToLower(line), suggestionKeywords) {
			capturing = true
			continue
		}
		if !capturing || line == "" {
			continue
		}
		first := []rune(line)[0]
		if first != '-' && first != '*' && first != '•' && !unicode.IsDigit(first) {
			continue
		}
		if s := strings.TrimSpace(strings.TrimLeft(line, "-*•0123456789. ")); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultSuggestions...)
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
