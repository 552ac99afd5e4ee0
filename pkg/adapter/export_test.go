package adapter

var (
	ToGeminiContents      = toGeminiContents
	GeminiResponseText    = geminiResponseText
	GeminiEmbeddingValues = geminiEmbeddingValues
)
