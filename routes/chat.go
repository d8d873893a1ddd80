package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pages-chatbot-platform/internal/ai"
	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/pages"
	"pages-chatbot-platform/internal/rag"
	"pages-chatbot-platform/models"
	"pages-chatbot-platform/utils"
)

const answerSystemPrompt = `You are the assistant for a published page. Answer the visitor's question using only the provided context. If the context does not contain the answer, say you don't know. Keep answers short and factual.`

// Rough reservation per chat turn against the page's daily budget; the actual
// spend is whatever the API reports afterwards.
const estimatedTokensPerTurn = 800

// SetupChatRoutes registers the public visitor endpoint. No session required:
// anyone can ask an active chatbot a question.
func SetupChatRoutes(
	router *gin.Engine,
	cfg *config.Config,
	pageStore *pages.Store,
	ragService *rag.Service,
	gemini *ai.GeminiClient,
	quotas *ai.QuotaStore,
) {
	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid_input", "Invalid request data")
			return
		}

		ctx := c.Request.Context()

		page, err := pageStore.FindByNickname(ctx, req.Nickname)
		if err != nil {
			logger.Error("page lookup failed", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to look up page")
			return
		}
		if page == nil || !page.ChatbotActive {
			utils.RespondWithNotFound(c, "No active chatbot for this page")
			return
		}

		// Cap the question before it reaches embedding and the prompt.
		question := ragService.Chunker().TruncateTokens(strings.TrimSpace(req.Question), cfg.MaxInputTokens)
		if question == "" {
			utils.RespondWithBadRequest(c, "invalid_input", "Question is empty")
			return
		}

		if err := quotas.Consume(ctx, req.Nickname, estimatedTokensPerTurn); err != nil {
			if errors.Is(err, ai.ErrQuotaExceeded) {
				utils.RespondWithTooMany(c, "This chatbot has reached its daily limit")
				return
			}
			logger.Error("quota check failed", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to check quota")
			return
		}

		chunks, err := ragService.Retrieve(ctx, req.Nickname, question, cfg.RAGMaxChunks)
		if err != nil {
			logger.Error("retrieval failed", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to retrieve context")
			return
		}

		completion, err := gemini.Complete(ctx, answerSystemPrompt, buildUserPrompt(question, chunks))
		if err != nil {
			logger.Error("completion failed", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to generate answer")
			return
		}

		// Conversation log is best effort; the visitor already has the answer.
		msg := &models.Message{
			Nickname:     req.Nickname,
			Question:     question,
			Answer:       completion.Answer,
			PromptTokens: completion.PromptTokens,
			OutputTokens: completion.OutputTokens,
		}
		if err := pageStore.SaveMessage(ctx, msg); err != nil {
			logger.Warn("failed to persist message", "nickname", req.Nickname, "error", err)
		}

		sources := make([]models.ChatSource, 0, len(chunks))
		for _, ch := range chunks {
			sources = append(sources, models.ChatSource{Index: ch.ChunkIndex})
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Answer:  completion.Answer,
			Sources: sources,
			Tokens: models.TokenUsage{
				Prompt: completion.PromptTokens,
				Output: completion.OutputTokens,
			},
		})
	})
}

func buildUserPrompt(question string, chunks []rag.RetrievedChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("No context is available for this page.\n\nQuestion: %s", question)
	}

	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, ch := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, ch.Text)
	}
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}
