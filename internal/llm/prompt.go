package llm

import (
	"fmt"
	"strings"
)

// ExtractionPrompt builds the fixed instruction that constrains the
// model to answer with a single JSON object holding exactly the keys
// descricao, valor and categoria.
func ExtractionPrompt(message string, categorias []string) string {
	return fmt.Sprintf(`Analise a seguinte mensagem de um usuário registrando um gasto e extraia a descrição, o valor e a categoria.
Responda APENAS com um único objeto JSON com exatamente as chaves "descricao", "valor" e "categoria". Sem markdown, sem texto adicional.
A categoria deve ser uma destas: %s.
Exemplo de mensagem: "Almoço 25.50 alimentação"
Exemplo de saída: {"descricao": "Almoço", "valor": "25.50", "categoria": "alimentação"}
Mensagem do usuário: "%s"`, strings.Join(categorias, ", "), message)
}

// AdvicePrompt embeds a category-aggregated spending table in the
// fixed advice instruction.
func AdvicePrompt(summary string) string {
	return fmt.Sprintf(`Você é um assistente financeiro pessoal. Abaixo está o resumo de gastos dos últimos 30 dias de um usuário, agrupado por categoria.
Dê um conselho financeiro curto e prático em português brasileiro (máximo 4 frases), apontando onde o usuário pode economizar.

%s`, summary)
}
