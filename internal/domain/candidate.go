package domain

// Candidate is a retrieved chunk moving through the ranking pipeline.
// Identity and content are fixed at creation; only scores are mutated
// by later stages.
type Candidate struct {
	id         string
	sourceFile string
	text       string
	metadata   map[string]string

	vectorScore   float64
	keywordScore  float64
	combinedScore float64
	rerankScore   float64
	reranked      bool
}

// NewCandidate creates a candidate chunk.
func NewCandidate(id, sourceFile, text string, metadata map[string]string) Candidate {
	return Candidate{id: id, sourceFile: sourceFile, text: text, metadata: metadata}
}

// ID returns the chunk identifier.
func (c *Candidate) ID() string { return c.id }

// SourceFile returns the source file identifier as stored.
func (c *Candidate) SourceFile() string { return c.sourceFile }

// Text returns the chunk content.
func (c *Candidate) Text() string { return c.text }

// Metadata returns the arbitrary chunk metadata.
func (c *Candidate) Metadata() map[string]string { return c.metadata }

// VectorScore returns the semantic similarity score in [0,1].
func (c *Candidate) VectorScore() float64 { return c.vectorScore }

// KeywordScore returns the lexical relevance score in [0,1].
func (c *Candidate) KeywordScore() float64 { return c.keywordScore }

// CombinedScore returns the fused vector+keyword score.
func (c *Candidate) CombinedScore() float64 { return c.combinedScore }

// RerankScore returns the cross-encoder relevance, valid only when Reranked.
func (c *Candidate) RerankScore() float64 { return c.rerankScore }

// Reranked reports whether the cross-encoder scored this candidate.
func (c *Candidate) Reranked() bool { return c.reranked }

// SetVectorScore records the semantic similarity score.
func (c *Candidate) SetVectorScore(s float64) { c.vectorScore = s }

// SetKeywordScore records the lexical relevance score.
func (c *Candidate) SetKeywordScore(s float64) { c.keywordScore = s }

// SetCombinedScore records the fused score.
func (c *Candidate) SetCombinedScore(s float64) { c.combinedScore = s }

// SetRerankScore records the blended cross-encoder score and marks the
// candidate as reranked.
func (c *Candidate) SetRerankScore(s float64) {
	c.rerankScore = s
	c.reranked = true
}

// FinalScore returns the score used for final ordering: the rerank blend
// when the candidate was reranked, the combined score otherwise.
func (c *Candidate) FinalScore() float64 {
	if c.reranked {
		return c.rerankScore
	}
	return c.combinedScore
}

// FileResult groups the retained chunks of one source file.
type FileResult struct {
	fileName  string
	chunks    []Candidate
	bestScore float64
	relevance float64
}

// NewFileResult creates a file aggregate. chunks must already be ordered
// by final score descending.
func NewFileResult(fileName string, chunks []Candidate, bestScore, relevance float64) FileResult {
	return FileResult{fileName: fileName, chunks: chunks, bestScore: bestScore, relevance: relevance}
}

// FileName returns the display name of the source file.
func (f *FileResult) FileName() string { return f.fileName }

// Chunks returns the retained chunks, best first.
func (f *FileResult) Chunks() []Candidate { return f.chunks }

// BestScore returns the top chunk's final score; files are ordered by it.
func (f *FileResult) BestScore() float64 { return f.bestScore }

// Relevance returns the rank-weighted average score of the retained chunks.
func (f *FileResult) Relevance() float64 { return f.relevance }
