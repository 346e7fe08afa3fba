package ai

import (
	"fmt"
	"strings"
)

// maxEnhancementResults is how many search hits the enhancement prompt lists.
const maxEnhancementResults = 5

// AnswerSystemPrompt grounds the assistant in the knowledge context. An
// empty context yields a prompt without the reference block.
func AnswerSystemPrompt(knowledgeContext string) string {
	var sb strings.Builder
	sb.WriteString("你是ISP知识库的技术助手，负责解答图像信号处理相关的问题。")
	if knowledgeContext != "" {
		sb.WriteString("\n回答时优先参考下面的知识条目，条目未覆盖的内容请明确说明：\n\n")
		sb.WriteString(knowledgeContext)
	}
	return sb.String()
}

// SearchHit is the part of a search result the enhancement prompt uses.
type SearchHit struct {
	Title       string
	Description string
}

// EnhancementMessages builds the request asking the model to explain a
// query in light of the top search results.
func EnhancementMessages(query string, hits []SearchHit) []Message {
	var sb strings.Builder
	sb.WriteString("检索结果：\n")
	for i, hit := range hits {
		if i == maxEnhancementResults {
			break
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, hit.Title, hit.Description)
	}
	question := fmt.Sprintf("请结合上述检索结果，针对查询“%s”给出更详细的解释和进一步阅读建议。", query)
	return FormatMessages(sb.String(), question, nil)
}
