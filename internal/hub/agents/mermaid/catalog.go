package mermaid

// DiagramType is one of the diagram kinds the agent generates.
type DiagramType struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const DefaultDiagramType = "sequence"

var diagramTypes = []DiagramType{
	{"sequence", "Diagrama de Sequência", "Interações entre entidades ao longo do tempo"},
	{"flowchart", "Fluxograma", "Fluxo de processos e decisões"},
	{"classDiagram", "Diagrama de Classes", "Estruturas orientadas a objetos"},
	{"stateDiagram", "Diagrama de Estados", "Máquinas de estado e transições"},
	{"gantt", "Gráfico de Gantt", "Cronogramas e planejamento"},
	{"erDiagram", "Diagrama ER", "Modelos de dados e relacionamentos"},
	{"journey", "Jornada do Usuário", "Experiência do usuário passo a passo"},
}

// DiagramTypes returns the supported diagram kinds.
func DiagramTypes() []DiagramType {
	out := make([]DiagramType, len(diagramTypes))
	copy(out, diagramTypes)
	return out
}

func lookupType(t string) (DiagramType, bool) {
	for _, d := range diagramTypes {
		if d.Type == t {
			return d, true
		}
	}
	return DiagramType{}, false
}
