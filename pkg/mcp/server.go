package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ngramlm/internal/service/corpus"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type NGramServer struct {
	server  *mcp.Server
	trainer *corpus.Trainer
	logger  *zap.Logger
	handler *mcp.StreamableHTTPHandler
}

type PerplexityParams struct {
	Text     string `json:"text" jsonschema:"the text to score"`
	Smoother string `json:"smoother,omitempty" jsonschema:"interpolation or discount (default interpolation)"`
	Order    int    `json:"order,omitempty" jsonschema:"n-gram order used for scoring (default the model order)"`
}

type ProbabilityParams struct {
	NGram    string `json:"ngram" jsonschema:"space separated n-gram, at most the model order long"`
	Smoother string `json:"smoother,omitempty" jsonschema:"interpolation or discount (default interpolation)"`
}

type SampleParams struct {
	Context  string `json:"context,omitempty" jsonschema:"preceding text; empty samples from the whole vocabulary"`
	Smoother string `json:"smoother,omitempty" jsonschema:"interpolation or discount (default interpolation)"`
	Length   int    `json:"length,omitempty" jsonschema:"number of tokens to generate (default 1, at most 200)"`
}

func NewNGramServer(trainer *corpus.Trainer, logger *zap.Logger) *NGramServer {
	server := &NGramServer{
		trainer: trainer,
		logger:  logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "NGramLM",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "perplexity",
		Description: "Score a text under the trained n-gram language model. Lower perplexity means the text looks more like the corpus",
	}, server.handlePerplexity)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "probability",
		Description: "Return the smoothed probability of an n-gram: the last token given the ones before it",
	}, server.handleProbability)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sample",
		Description: "Sample tokens that continue the given context according to the language model",
	}, server.handleSample)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	result := textResult(format, args...)
	result.IsError = true
	return result
}

func (s *NGramServer) handlePerplexity(ctx context.Context, req *mcp.CallToolRequest, args PerplexityParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling perplexity request", zap.Int("text_length", len(args.Text)), zap.String("smoother", args.Smoother))

	score, err := s.trainer.Score(args.Text, args.Smoother, args.Order)
	if err != nil {
		s.logger.Error("Failed to compute perplexity", zap.Error(err))
		return errorResult("Failed to compute perplexity: %v", err), nil, nil
	}
	return textResult("Perplexity: %.4f\nLog likelihood: %.4f\nCross entropy: %.4f bits/token",
		score.Perplexity, score.LogLikelihood, score.CrossEntropy), nil, nil
}

func (s *NGramServer) handleProbability(ctx context.Context, req *mcp.CallToolRequest, args ProbabilityParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling probability request", zap.String("ngram", args.NGram), zap.String("smoother", args.Smoother))

	p, err := s.trainer.Probability(args.NGram, args.Smoother)
	if err != nil {
		s.logger.Error("Failed to compute probability", zap.Error(err))
		return errorResult("Failed to compute probability: %v", err), nil, nil
	}
	return textResult("P(%s) = %.6f", args.NGram, p), nil, nil
}

func (s *NGramServer) handleSample(ctx context.Context, req *mcp.CallToolRequest, args SampleParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling sample request", zap.String("context", args.Context), zap.Int("length", args.Length))

	if args.Length <= 1 {
		token, err := s.trainer.Sample(args.Context, args.Smoother)
		if err != nil {
			s.logger.Error("Failed to sample", zap.Error(err))
			return errorResult("Failed to sample: %v", err), nil, nil
		}
		return textResult("%s", token), nil, nil
	}

	length := args.Length
	if length > corpus.MaxGenerateLength {
		length = corpus.MaxGenerateLength
	}
	tokens, err := s.trainer.Generate(args.Context, args.Smoother, length)
	if err != nil {
		s.logger.Error("Failed to generate", zap.Error(err))
		return errorResult("Failed to generate: %v", err), nil, nil
	}
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = string(t)
	}
	return textResult("%s", strings.Join(words, " ")), nil, nil
}

// SetupHTTPRoutes mounts the MCP transport at /mcp on router
func (s *NGramServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}
