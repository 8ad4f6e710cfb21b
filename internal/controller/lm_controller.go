package controller

import (
	"errors"
	"net/http"

	"ngramlm/internal/service/corpus"
	"ngramlm/internal/service/lm"
	"ngramlm/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LMController serves the language model HTTP API over a corpus trainer
type LMController struct {
	trainer *corpus.Trainer
	logger  *zap.Logger
}

// NewLMController creates a controller backed by trainer
func NewLMController(trainer *corpus.Trainer, logger *zap.Logger) *LMController {
	return &LMController{
		trainer: trainer,
		logger:  logger,
	}
}

// TextRequest carries free text that is normalized before use
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ProbabilityRequest asks for the smoothed probability of an n-gram
type ProbabilityRequest struct {
	NGram    string `json:"ngram" binding:"required"`
	Smoother string `json:"smoother"`
}

// PerplexityRequest asks for the likelihood measures of a text
type PerplexityRequest struct {
	Text     string `json:"text" binding:"required"`
	Smoother string `json:"smoother"`
	Order    int    `json:"order"`
}

// SampleRequest asks for one token after a context
type SampleRequest struct {
	Context  string `json:"context"`
	Smoother string `json:"smoother"`
}

// GenerateRequest asks for up to Length tokens after a seed
type GenerateRequest struct {
	Seed     string `json:"seed"`
	Smoother string `json:"smoother"`
	Length   int    `json:"length" binding:"required,min=1"`
}

// EvaluateRequest scores held-out texts against each other
type EvaluateRequest struct {
	Texts    []string `json:"texts" binding:"required,min=1"`
	Smoother string   `json:"smoother"`
	Order    int      `json:"order"`
}

// AddDocumentRequest stores a new corpus document
type AddDocumentRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Text   string `json:"text" binding:"required"`
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, corpus.ErrNoModel):
		return http.StatusServiceUnavailable
	case errors.Is(err, lm.ErrOrder), errors.Is(err, lm.ErrEmptySequence), errors.Is(err, lm.ErrUnknownSmoother),
		errors.Is(err, lm.ErrLength):
		return http.StatusBadRequest
	case errors.Is(err, ngram.ErrNotFound), errors.Is(err, lm.ErrNoCandidates), errors.Is(err, corpus.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, lm.ErrEmptyModel):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (lc *LMController) bind(c *gin.Context, request any) bool {
	if err := c.ShouldBindJSON(request); err != nil {
		lc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func (lc *LMController) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		lc.logger.Error(message, zap.Error(err))
	} else {
		lc.logger.Debug(message, zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// Stats handles GET /stats
func (lc *LMController) Stats(c *gin.Context) {
	stats, err := lc.trainer.GetStats()
	if err != nil {
		lc.fail(c, "Failed to get stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Count handles POST /count with the raw and relative frequency of an n-gram
func (lc *LMController) Count(c *gin.Context) {
	var request TextRequest
	if !lc.bind(c, &request) {
		return
	}
	freq, err := lc.trainer.Count(request.Text)
	if err != nil {
		lc.fail(c, "Failed to count n-gram", err)
		return
	}
	c.JSON(http.StatusOK, freq)
}

// Probability handles POST /probability
func (lc *LMController) Probability(c *gin.Context) {
	var request ProbabilityRequest
	if !lc.bind(c, &request) {
		return
	}
	p, err := lc.trainer.Probability(request.NGram, request.Smoother)
	if err != nil {
		lc.fail(c, "Failed to compute probability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ngram": request.NGram, "probability": p})
}

// Perplexity handles POST /perplexity with log likelihood, perplexity and
// cross entropy
func (lc *LMController) Perplexity(c *gin.Context) {
	var request PerplexityRequest
	if !lc.bind(c, &request) {
		return
	}
	score, err := lc.trainer.Score(request.Text, request.Smoother, request.Order)
	if err != nil {
		lc.fail(c, "Failed to compute perplexity", err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// Sample handles POST /sample
func (lc *LMController) Sample(c *gin.Context) {
	var request SampleRequest
	if !lc.bind(c, &request) {
		return
	}
	token, err := lc.trainer.Sample(request.Context, request.Smoother)
	if err != nil {
		lc.fail(c, "Failed to sample", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Generate handles POST /generate. Lengths above corpus.MaxGenerateLength
// are capped.
func (lc *LMController) Generate(c *gin.Context) {
	var request GenerateRequest
	if !lc.bind(c, &request) {
		return
	}
	tokens, err := lc.trainer.Generate(request.Seed, request.Smoother, request.Length)
	if err != nil {
		lc.fail(c, "Failed to generate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Evaluate handles POST /evaluate, scoring every text and its z-score
// within the batch
func (lc *LMController) Evaluate(c *gin.Context) {
	var request EvaluateRequest
	if !lc.bind(c, &request) {
		return
	}
	evaluation, err := lc.trainer.EvaluateTexts(c.Request.Context(), request.Texts, request.Smoother, request.Order)
	if err != nil {
		lc.fail(c, "Failed to evaluate texts", err)
		return
	}
	c.JSON(http.StatusOK, evaluation)
}

// AddDocument handles POST /documents
func (lc *LMController) AddDocument(c *gin.Context) {
	var request AddDocumentRequest
	if !lc.bind(c, &request) {
		return
	}
	id, err := lc.trainer.AddText(request.ID, request.Source, request.Text)
	if err != nil {
		lc.fail(c, "Failed to add document", err)
		return
	}
	lc.logger.Info("Added document", zap.String("id", id))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetDocument handles GET /documents/:id
func (lc *LMController) GetDocument(c *gin.Context) {
	doc, err := lc.trainer.Document(c.Param("id"))
	if err != nil {
		lc.fail(c, "Failed to get document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/:id. The model changes on the
// next train.
func (lc *LMController) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := lc.trainer.DeleteDocument(id); err != nil {
		lc.fail(c, "Failed to delete document", err)
		return
	}
	lc.logger.Info("Deleted document", zap.String("id", id))
	c.Status(http.StatusNoContent)
}

// Train handles POST /train, rebuilding the model from the stored corpus
func (lc *LMController) Train(c *gin.Context) {
	if err := lc.trainer.Train(c.Request.Context(), nil); err != nil {
		lc.fail(c, "Failed to train model", err)
		return
	}
	lc.Stats(c)
}
