package workflow

import "fmt"

const extractionSystem = `Você é um pesquisador de preços, promoções, ofertas e valores. Extraia nomes específicos de ferramentas, bibliotecas, plataformas ou serviços de artigos.
Concentre-se em produtos/ferramentas/soluções/serviços reais que consumidores demonstrem interesse e podem usar.`

func extractionUser(query, content string) string {
	return fmt.Sprintf(`Query: %s
Conteúdo do Artigo: %s

Extraia uma lista de nomes de produtos/ferramentas/soluções/serviços específicos mencionados neste conteúdo que sejam relevantes para "%s".

Rules:
- Incluir apenas nomes de produtos reais, sem termos genéricos
- Foco em ferramentas/soluções/serviços que os consumidores podem comprar, obter, assinar, usar e consumir diretamente
- Incluir opções comerciais e de código aberto
- Limitar às 5 resultados mais relevantes
- Retornar apenas os nomes dos produtos/ferramentas/soluções/serviços, um por linha, sem descrições

Formato de exemplo:
Amazon
MercadoLivre
Picpay
Nubank
Microsoft`, query, content, query)
}

const analysisSystem = `Você está analisando preços, promoções, ofertas e valores de produtos/ferramentas/soluções/serviços com base na categoria informada pelo usuário.
Concentre-se em extrair informações relevantes para consumidores de produtos/ferramentas/soluções/serviços.
Preste atenção especial nas condições, descontos, modelo comercial, pré-requisitos, tecnologia, APIs, SDKs e modos de utilização.
Responda apenas com um objeto JSON.`

func analysisUser(name, content string) string {
	return fmt.Sprintf(`Empresa/Ferramenta: %s
Conteúdo do Website: %s

Analise este conteúdo da perspectiva de um consumidor e responda com um objeto JSON com os campos:
- pricing_model: "Gratuito", "Freemium", "Pago", "Empresarial", "Assinatura" ou "Desconhecido"
- is_open_source: true se for de código aberto, false se for proprietário, null se não estiver claro
- tech_stack: lista de tecnologias adotadas pelo produto
- description: breve descrição de uma frase com foco no que o produto entrega para o consumidor
- api_available: true se API REST, GraphQL, SDK ou acesso programático forem mencionados, null se não estiver claro
- language_support: lista de linguagens de programação explicitamente suportadas
- integration_capabilities: lista de ferramentas/plataformas com as quais se integra`, name, content)
}

const recommendationSystem = `Você é um pesquisador sênior que fornece recomendações técnicas rápidas e concisas.
Mantenha as respostas breves e práticas - no máximo 3 a 4 frases no total.`

func recommendationUser(query, tools string) string {
	return fmt.Sprintf(`Consumer Query: %s
Ferramentas/Tecnologias Analisadas: %s

Forneça uma breve recomendação (máximo de 3 a 4 frases) abrangendo:
- Qual ferramenta é a melhor e por quê
- Principais considerações sobre custo/preço
- Principal vantagem técnica
- A melhor oferta, preços e condições

Não são necessárias longas explicações.`, query, tools)
}
