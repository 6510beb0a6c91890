package collector

import "strings"

// buildAnalysisPrompt asks the model for a strict-JSON analysis of text
// content. The model routinely ignores the "JSON only" instruction and
// wraps the object in prose or fences anyway; ParseAnalysis deals with that.
func buildAnalysisPrompt(content string, deepAnalysis bool) string {
	var b strings.Builder
	b.WriteString("请分析以下内容，并以JSON格式返回分析结果：\n\n内容：\n")
	b.WriteString(content)
	b.WriteString(`

请返回以下格式的JSON：
{
  "summary": "内容摘要（50-100字）",
  "keywords": ["关键词1", "关键词2", "关键词3"],
  "tags": ["标签1", "标签2"],
  "sentiment": 0.5,
  "category": "分类",
  "importance_score": 0.8,
  "insights": "深度见解（仅在深度分析时提供）"
}

说明：
- summary: 简洁的内容摘要
- keywords: 3-5个关键词
- tags: 2-4个标签，用于分类管理
- sentiment: 情感分数，-1（负面）到1（正面）
- category: 内容分类（idea/article/quote/todo/learning/tech/business等）
- importance_score: 重要性评分，0-1之间
`)
	if deepAnalysis {
		b.WriteString("- insights: 提供深度分析和见解\n")
	}
	b.WriteString("\n请确保返回有效的JSON格式，不要包含其他文字。")
	return b.String()
}

const imageAnalysisPrompt = `分析这张图片，识别其中的主要内容、场景和文字信息，并以JSON格式返回分析结果：
{
  "summary": "图片内容描述",
  "keywords": ["关键词1", "关键词2"],
  "tags": ["标签1", "标签2"],
  "sentiment": 0,
  "category": "分类",
  "importance_score": 0.5
}

请确保返回有效的JSON格式，不要包含其他文字。`

// buildInsightPrompt asks the model to synthesize one insight across the
// given recent summaries.
func buildInsightPrompt(summaries []string) string {
	return "基于以下最近的输入内容，生成一个有价值的洞察。请找出内容之间的联系、模式或趋势，提供一个原创的观点。保持简洁但深刻。\n\n最近的内容摘要：\n" +
		strings.Join(summaries, "\n\n")
}
