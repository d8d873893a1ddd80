package routes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"pages-chatbot-platform/internal/ai"
	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/internal/logger"
	"pages-chatbot-platform/internal/pages"
	"pages-chatbot-platform/internal/queue"
	"pages-chatbot-platform/internal/rag"
	"pages-chatbot-platform/middleware"
	"pages-chatbot-platform/models"
	"pages-chatbot-platform/services"
	"pages-chatbot-platform/utils"
)

// SetupChatbotRoutes registers the owner-facing endpoints: activation,
// conversation log and quota management. All require a valid session cookie
// and ownership of the target page.
func SetupChatbotRoutes(
	router *gin.Engine,
	cfg *config.Config,
	pageStore *pages.Store,
	ragService *rag.Service,
	vectors rag.VectorStore,
	extractor *services.PDFExtractor,
	queueClient *asynq.Client,
	quotas *ai.QuotaStore,
) {
	chatbot := router.Group("/chatbot")
	chatbot.Use(middleware.RequireSession(cfg))

	chatbot.POST("/activate", func(c *gin.Context) {
		nickname := strings.TrimSpace(c.PostForm("nickname"))
		if len(nickname) < 3 || len(nickname) > 50 {
			utils.RespondWithBadRequest(c, "invalid_nickname", "Nickname must be 3-50 characters")
			return
		}

		if _, ok := requireOwnedPage(c, pageStore, nickname); !ok {
			return
		}

		text := c.PostForm("text")
		clearExisting := c.PostForm("clear_existing") == "true"

		fileText, sourceFile, err := readUploadedFile(c, cfg, extractor)
		if err != nil {
			utils.RespondWithBadRequest(c, "invalid_file", err.Error())
			return
		}

		content := strings.TrimSpace(strings.TrimSpace(text) + "\n\n" + fileText)
		if len(content) < cfg.MinContentChars {
			utils.RespondWithBadRequest(c, "insufficient_content",
				fmt.Sprintf("Combined content must be at least %d characters", cfg.MinContentChars))
			return
		}

		ctx := c.Request.Context()

		// Large uploads go through the worker so the request returns fast.
		if len(content) > cfg.SyncIngestLimit && queueClient != nil {
			task, err := queue.NewIngestTask(queue.IngestPayload{
				Nickname:      nickname,
				Content:       content,
				SourceFile:    sourceFile,
				ClearExisting: clearExisting,
			})
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to queue ingestion")
				return
			}
			if _, err := queueClient.Enqueue(task); err != nil {
				logger.Error("failed to enqueue ingestion", "nickname", nickname, "error", err)
				utils.RespondWithInternalError(c, "Failed to queue ingestion")
				return
			}
			c.JSON(http.StatusAccepted, models.ActivateQueuedResponse{
				OK:       true,
				Nickname: nickname,
				Queued:   true,
				Message:  "Content queued for ingestion",
			})
			return
		}

		if clearExisting {
			if err := vectors.DeleteTenant(ctx, nickname); err != nil {
				logger.Error("failed to clear tenant", "nickname", nickname, "error", err)
				utils.RespondWithInternalError(c, "Failed to clear existing content")
				return
			}
		}

		chunks, err := ragService.IngestText(ctx, nickname, content)
		if err != nil {
			logger.Error("ingestion failed", "nickname", nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to ingest content")
			return
		}

		now := time.Now()
		info := &models.ChatbotInfo{
			Chunks:       chunks,
			SourceFile:   sourceFile,
			ActivatedAt:  now,
			LastIngestAt: now,
		}
		if err := pageStore.SetChatbotActive(ctx, nickname, true, info); err != nil {
			logger.Error("failed to mark chatbot active", "nickname", nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to activate chatbot")
			return
		}

		c.JSON(http.StatusOK, models.ActivateResponse{
			OK:       true,
			Nickname: nickname,
			Chunks:   chunks,
			Message:  "Chatbot activated",
		})
	})

	chatbot.POST("/deactivate", func(c *gin.Context) {
		var req models.DeactivateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid_input", "Invalid request data")
			return
		}

		if _, ok := requireOwnedPage(c, pageStore, req.Nickname); !ok {
			return
		}

		ctx := c.Request.Context()
		if err := vectors.DeleteTenant(ctx, req.Nickname); err != nil {
			logger.Error("failed to delete tenant", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to delete chatbot content")
			return
		}

		if err := pageStore.SetChatbotActive(ctx, req.Nickname, false, nil); err != nil {
			logger.Error("failed to mark chatbot inactive", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to deactivate chatbot")
			return
		}

		c.JSON(http.StatusOK, models.DeactivateResponse{
			OK:       true,
			Nickname: req.Nickname,
			Deleted:  "tenant",
		})
	})

	chatbot.GET("/messages", func(c *gin.Context) {
		nickname := strings.TrimSpace(c.Query("nickname"))
		if len(nickname) < 3 || len(nickname) > 50 {
			utils.RespondWithBadRequest(c, "invalid_nickname", "Nickname must be 3-50 characters")
			return
		}
		if _, ok := requireOwnedPage(c, pageStore, nickname); !ok {
			return
		}

		limit := parseMessagesLimit(c.Query("limit"))
		msgs, err := pageStore.RecentMessages(c.Request.Context(), nickname, limit)
		if err != nil {
			logger.Error("failed to list messages", "nickname", nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to load messages")
			return
		}
		if msgs == nil {
			msgs = []models.Message{}
		}

		c.JSON(http.StatusOK, models.MessagesResponse{
			OK:       true,
			Nickname: nickname,
			Messages: msgs,
		})
	})

	chatbot.GET("/quota", func(c *gin.Context) {
		nickname := strings.TrimSpace(c.Query("nickname"))
		if len(nickname) < 3 || len(nickname) > 50 {
			utils.RespondWithBadRequest(c, "invalid_nickname", "Nickname must be 3-50 characters")
			return
		}
		if _, ok := requireOwnedPage(c, pageStore, nickname); !ok {
			return
		}

		quota, err := quotas.Status(c.Request.Context(), nickname)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// No spend yet; report the default budget untouched.
				c.JSON(http.StatusOK, ai.PageQuota{
					Nickname:        nickname,
					DailyTokenLimit: ai.DefaultDailyTokenLimit,
				})
				return
			}
			logger.Error("failed to load quota", "nickname", nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to load quota")
			return
		}

		c.JSON(http.StatusOK, quota)
	})

	chatbot.POST("/quota", func(c *gin.Context) {
		var req models.QuotaUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid_input", "Invalid request data")
			return
		}
		if _, ok := requireOwnedPage(c, pageStore, req.Nickname); !ok {
			return
		}

		if err := quotas.SetLimit(c.Request.Context(), req.Nickname, req.DailyLimit); err != nil {
			logger.Error("failed to set quota", "nickname", req.Nickname, "error", err)
			utils.RespondWithInternalError(c, "Failed to update quota")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"nickname":    req.Nickname,
			"daily_limit": req.DailyLimit,
		})
	})
}

const (
	defaultMessagesLimit = 20
	maxMessagesLimit     = 100
)

// parseMessagesLimit interprets the optional limit query parameter, clamping
// it to a sane page size.
func parseMessagesLimit(raw string) int64 {
	if raw == "" {
		return defaultMessagesLimit
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return defaultMessagesLimit
	}
	if n > maxMessagesLimit {
		return maxMessagesLimit
	}
	return n
}

// requireOwnedPage loads the page and checks the session uid owns it. Writes
// the error response itself when the check fails.
func requireOwnedPage(c *gin.Context, pageStore *pages.Store, nickname string) (*models.Page, bool) {
	page, err := pageStore.FindByNickname(c.Request.Context(), nickname)
	if err != nil {
		logger.Error("page lookup failed", "nickname", nickname, "error", err)
		utils.RespondWithInternalError(c, "Failed to look up page")
		return nil, false
	}
	if page == nil {
		utils.RespondWithNotFound(c, "Page not found")
		return nil, false
	}
	if page.UID != middleware.GetUID(c) {
		utils.RespondWithForbidden(c, "You do not own this page")
		return nil, false
	}
	return page, true
}

// readUploadedFile returns the text content of the optional "file" part.
// PDFs are extracted; anything else is read as plain text.
func readUploadedFile(c *gin.Context, cfg *config.Config, extractor *services.PDFExtractor) (string, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No file part is fine; text alone can carry the content.
		return "", "", nil
	}

	if fileHeader.Size > cfg.MaxFileSize {
		return "", "", fmt.Errorf("file exceeds maximum size of %d bytes", cfg.MaxFileSize)
	}

	content, err := readAll(fileHeader)
	if err != nil {
		return "", "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		result, err := extractor.ExtractText(c.Request.Context(), content)
		if err != nil {
			return "", "", fmt.Errorf("failed to extract text from pdf: %w", err)
		}
		return result.Text, fileHeader.Filename, nil
	}

	return string(content), fileHeader.Filename, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
