package corpus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	model "ngramlm/internal/model/ngram"
	"ngramlm/internal/service/lm"
	"ngramlm/internal/service/ngram"
	"ngramlm/internal/service/textnorm"
)

var (
	// ErrNoModel is returned by queries made before a successful Train
	ErrNoModel = errors.New("no trained model")
	// ErrDocumentNotFound is returned for an unknown document ID
	ErrDocumentNotFound = errors.New("document not found")
)

// TrainerOptions configures the trie and language model built by Train
type TrainerOptions struct {
	Model             lm.Config
	UseBloom          bool
	ExpectedItems     uint
	FalsePositiveRate float64
	Seed              int64 // 0 seeds sampling from the clock
}

// DefaultTrainerOptions returns trigram options with the bloom filter enabled
func DefaultTrainerOptions() TrainerOptions {
	return TrainerOptions{
		Model:             lm.DefaultConfig(),
		UseBloom:          true,
		ExpectedItems:     100000,
		FalsePositiveRate: 0.01,
	}
}

// Trainer manages the stored corpus and the model trained from it. A trained
// trie is immutable, so Train builds a fresh one and swaps it in.
type Trainer struct {
	store      *DocumentStore
	loader     *Loader
	normalizer *textnorm.Normalizer
	opts       TrainerOptions
	logger     *zap.Logger

	model     *lm.LanguageModel
	documents int
	tokens    int64
	mu        sync.RWMutex
}

// NewTrainer creates a trainer over store
func NewTrainer(store *DocumentStore, loader *Loader, normalizer *textnorm.Normalizer, opts TrainerOptions, logger *zap.Logger) *Trainer {
	if normalizer == nil {
		normalizer = textnorm.NewNormalizer()
	}
	if loader == nil {
		loader = NewLoader(nil, nil, normalizer, logger)
	}
	if opts.Model.Order < 1 {
		opts.Model.Order = 3
	}
	return &Trainer{
		store:      store,
		loader:     loader,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
	}
}

// Ingest loads every matching file under dir into the store
func (tr *Trainer) Ingest(ctx context.Context, dir string, onDoc func(Document)) (LoadResult, error) {
	return tr.loader.Load(ctx, dir, func(doc Document) error {
		if _, err := tr.store.Put(doc); err != nil {
			return err
		}
		if onDoc != nil {
			onDoc(doc)
		}
		return nil
	})
}

// AddText normalizes text and stores it as a document, returning its ID
func (tr *Trainer) AddText(id, source, text string) (string, error) {
	tokens := tr.normalizer.Tokenize(text)
	if len(tokens) == 0 {
		return "", lm.ErrEmptySequence
	}
	return tr.store.Put(Document{ID: id, Source: source, Tokens: tokens})
}

// Train rebuilds the trie from every stored document, runs the MLE pass and
// replaces the current model
func (tr *Trainer) Train(ctx context.Context, onDoc func(Document)) error {
	var trie *ngram.NGramTrie
	if tr.opts.UseBloom {
		trie = ngram.NewNGramTrieWithBloom(tr.opts.Model.Order, tr.opts.ExpectedItems, tr.opts.FalsePositiveRate)
	} else {
		trie = ngram.NewNGramTrie(tr.opts.Model.Order)
	}

	var documents int
	var tokens int64
	err := tr.store.ForEach(func(doc Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(doc.Tokens) == 0 {
			return nil
		}
		if err := trie.AddDocument(doc.Tokens); err != nil {
			return fmt.Errorf("failed to add document %s: %w", doc.ID, err)
		}
		documents++
		tokens += int64(len(doc.Tokens))
		if onDoc != nil {
			onDoc(doc)
		}
		return nil
	}, func(id string, err error) {
		tr.logger.Warn("Skipping undecodable document", zap.String("id", id), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}

	if err := trie.ComputeMLE(); err != nil {
		return fmt.Errorf("failed to compute mle: %w", err)
	}

	var modelOpts []lm.Option
	if tr.opts.Seed != 0 {
		modelOpts = append(modelOpts, lm.WithRand(rand.New(rand.NewSource(tr.opts.Seed))))
	}
	m, err := lm.NewLanguageModel(trie, tr.opts.Model, modelOpts...)
	if err != nil {
		return fmt.Errorf("failed to build language model: %w", err)
	}

	tr.mu.Lock()
	tr.model = m
	tr.documents = documents
	tr.tokens = tokens
	tr.mu.Unlock()

	stats := trie.Stats()
	tr.logger.Info("Trained language model",
		zap.Int("order", stats.MaxOrder),
		zap.Int("documents", documents),
		zap.Int64("tokens", tokens),
		zap.Int("vocabulary", stats.VocabularySize),
		zap.Int64("nodes", stats.TotalNodes),
		zap.Int64("memory_bytes", stats.TotalMemoryBytes()))

	return nil
}

// Model returns the current language model
func (tr *Trainer) Model() (*lm.LanguageModel, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if tr.model == nil {
		return nil, ErrNoModel
	}
	return tr.model, nil
}

// Tokenize normalizes text the same way stored documents were
func (tr *Trainer) Tokenize(text string) []model.Token {
	return tr.normalizer.Tokenize(text)
}

func (tr *Trainer) smoother(name string) (*lm.LanguageModel, lm.Smoother, error) {
	m, err := tr.Model()
	if err != nil {
		return nil, nil, err
	}
	s, err := m.Smoother(name)
	if err != nil {
		return nil, nil, err
	}
	return m, s, nil
}

// resolveOrder maps a zero order to the model order and rejects anything
// outside [1, model order]
func resolveOrder(m *lm.LanguageModel, order int) (int, error) {
	if order == 0 {
		order = m.Order()
	}
	if order < 1 || order > m.Order() {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", lm.ErrOrder, order, m.Order())
	}
	return order, nil
}

// Frequency is the recorded count of an n-gram and its count relative to
// its context
type Frequency struct {
	NGram             string  `json:"ngram"`
	Count             int64   `json:"count"`
	RelativeFrequency float64 `json:"relative_frequency"`
}

// Count returns the raw and relative count of the normalized text as one n-gram
func (tr *Trainer) Count(text string) (Frequency, error) {
	m, err := tr.Model()
	if err != nil {
		return Frequency{}, err
	}
	seq := model.NGram(tr.Tokenize(text))
	if len(seq) == 0 {
		return Frequency{}, lm.ErrEmptySequence
	}
	freq, _ := m.Trie().RelativeFrequency(seq)
	return Frequency{
		NGram:             seq.String(),
		Count:             m.Count(seq),
		RelativeFrequency: freq,
	}, nil
}

// Probability smooths the normalized text as one n-gram
func (tr *Trainer) Probability(text, smoother string) (float64, error) {
	m, s, err := tr.smoother(smoother)
	if err != nil {
		return 0, err
	}
	seq := model.NGram(tr.Tokenize(text))
	if len(seq) == 0 {
		return 0, lm.ErrEmptySequence
	}
	if len(seq) > m.Order() {
		return 0, fmt.Errorf("%w: %d tokens exceed model order %d", lm.ErrOrder, len(seq), m.Order())
	}
	return s.Smooth(seq), nil
}

// Score holds the likelihood measures of one text
type Score struct {
	Tokens        int     `json:"tokens"`
	Order         int     `json:"order"`
	LogLikelihood float64 `json:"log_likelihood"`
	Perplexity    float64 `json:"perplexity"`
	CrossEntropy  float64 `json:"cross_entropy"` // bits per token
}

// Score measures text under the named smoother. Order 0 means the model order.
func (tr *Trainer) Score(text, smoother string, order int) (Score, error) {
	m, s, err := tr.smoother(smoother)
	if err != nil {
		return Score{}, err
	}
	order, err = resolveOrder(m, order)
	if err != nil {
		return Score{}, err
	}
	return score(m, tr.Tokenize(text), s.Smooth, order)
}

func score(m *lm.LanguageModel, tokens []model.Token, fn lm.SmoothingFunc, order int) (Score, error) {
	ll, err := m.LogLikelihood(tokens, fn, order)
	if err != nil {
		return Score{}, err
	}
	pp, err := m.Perplexity(tokens, fn, order)
	if err != nil {
		return Score{}, err
	}
	ce, err := m.CrossEntropy(tokens, fn, order)
	if err != nil {
		return Score{}, err
	}
	return Score{
		Tokens:        len(tokens),
		Order:         order,
		LogLikelihood: ll,
		Perplexity:    pp,
		CrossEntropy:  ce,
	}, nil
}

// Sample draws the next token after the normalized context
func (tr *Trainer) Sample(prior, smoother string) (model.Token, error) {
	m, s, err := tr.smoother(smoother)
	if err != nil {
		return "", err
	}
	tokens := tr.Tokenize(prior)
	if len(tokens) >= m.Order() {
		tokens = tokens[len(tokens)-m.Order()+1:]
	}
	return m.Sample(s.Smooth, tokens...)
}

// MaxGenerateLength caps the tokens a single Generate call produces
const MaxGenerateLength = 200

// Generate extends the normalized seed by up to n sampled tokens, at most
// MaxGenerateLength
func (tr *Trainer) Generate(seed, smoother string, n int) ([]model.Token, error) {
	m, s, err := tr.smoother(smoother)
	if err != nil {
		return nil, err
	}
	if n > MaxGenerateLength {
		n = MaxGenerateLength
	}
	return m.Generate(s.Smooth, tr.Tokenize(seed), n)
}

// Document returns the stored document with the given ID
func (tr *Trainer) Document(id string) (Document, error) {
	doc, ok, err := tr.store.Get(id)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, fmt.Errorf("document %q: %w", id, ErrDocumentNotFound)
	}
	return doc, nil
}

// DeleteDocument removes a stored document. The current model keeps its
// counts until the next Train.
func (tr *Trainer) DeleteDocument(id string) error {
	if _, err := tr.Document(id); err != nil {
		return err
	}
	if err := tr.store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// PerplexityStats summarizes per-document perplexities
type PerplexityStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// ZScore returns how many standard deviations value lies from the mean
func (s PerplexityStats) ZScore(value float64) float64 {
	if s.StdDev == 0 {
		return 0
	}
	return (value - s.Mean) / s.StdDev
}

// DocumentScore is the evaluation result of one document
type DocumentScore struct {
	ID     string  `json:"id"`
	Source string  `json:"source,omitempty"`
	ZScore float64 `json:"z_score"`
	Score
}

// Evaluation is the held-out scoring of a set of documents
type Evaluation struct {
	Stats     PerplexityStats `json:"stats"`
	Documents []DocumentScore `json:"documents"`
}

// Evaluate scores each document under the current model and places every
// perplexity against the spread of the whole set. Empty documents are skipped.
func (tr *Trainer) Evaluate(ctx context.Context, docs []Document, smoother string, order int) (Evaluation, error) {
	m, s, err := tr.smoother(smoother)
	if err != nil {
		return Evaluation{}, err
	}
	order, err = resolveOrder(m, order)
	if err != nil {
		return Evaluation{}, err
	}

	scores := make([]DocumentScore, 0, len(docs))
	values := make([]float64, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return Evaluation{}, err
		}
		if len(doc.Tokens) == 0 {
			continue
		}
		sc, err := score(m, doc.Tokens, s.Smooth, order)
		if err != nil {
			return Evaluation{}, fmt.Errorf("failed to score document %s: %w", doc.ID, err)
		}
		scores = append(scores, DocumentScore{ID: doc.ID, Source: doc.Source, Score: sc})
		values = append(values, sc.Perplexity)
	}

	stats := calculatePerplexityStatistics(values)
	for i := range scores {
		scores[i].ZScore = stats.ZScore(scores[i].Perplexity)
	}
	return Evaluation{Stats: stats, Documents: scores}, nil
}

// EvaluateTexts normalizes each text and evaluates them as documents
func (tr *Trainer) EvaluateTexts(ctx context.Context, texts []string, smoother string, order int) (Evaluation, error) {
	docs := make([]Document, len(texts))
	for i, text := range texts {
		docs[i] = Document{ID: fmt.Sprintf("%d", i), Tokens: tr.Tokenize(text)}
	}
	return tr.Evaluate(ctx, docs, smoother, order)
}

// EvaluateDir loads held-out documents from dir with the trainer's loader,
// without storing them, and evaluates them
func (tr *Trainer) EvaluateDir(ctx context.Context, dir, smoother string, order int) (Evaluation, error) {
	var docs []Document
	_, err := tr.loader.Load(ctx, dir, func(doc Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to load held-out documents: %w", err)
	}
	return tr.Evaluate(ctx, docs, smoother, order)
}

// Stats reports corpus and trie statistics
type Stats struct {
	StoredDocuments  int              `json:"stored_documents"`
	TrainedDocuments int              `json:"trained_documents"`
	TrainedTokens    int64            `json:"trained_tokens"`
	Trained          bool             `json:"trained"`
	Model            *lm.Config       `json:"model,omitempty"`
	Trie             *ngram.TrieStats `json:"trie,omitempty"`
}

// GetStats returns the current statistics
func (tr *Trainer) GetStats() (Stats, error) {
	stored, err := tr.store.Count()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()

	stats := Stats{
		StoredDocuments:  stored,
		TrainedDocuments: tr.documents,
		TrainedTokens:    tr.tokens,
		Trained:          tr.model != nil,
	}
	if tr.model != nil {
		cfg := tr.model.Config()
		trieStats := tr.model.Trie().Stats()
		stats.Model = &cfg
		stats.Trie = &trieStats
	}
	return stats, nil
}

func calculatePerplexityStatistics(values []float64) PerplexityStats {
	if len(values) == 0 {
		return PerplexityStats{}
	}

	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	varianceSum := 0.0
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}

	return PerplexityStats{
		Mean:   mean,
		StdDev: math.Sqrt(varianceSum / float64(len(values))),
		Min:    min,
		Max:    max,
		Count:  len(values),
	}
}
