package processor

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mpuig/rentagpt/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Processor splits documents into overlapping chunks. Splitting is
// hierarchical: paragraph boundaries first, then sentence, word and
// finally raw characters, descending only while a segment still
// exceeds ChunkSize.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)

	return Processor{
		config:   config,
		splitter: splitter,
	}
}

// Split chunks one document. An empty document yields zero chunks.
func (p *Processor) Split(doc models.Document) ([]models.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	parts, err := p.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:        uuid.NewString(),
			SourceURL: doc.SourceURL,
			Text:      part,
		})
	}

	return chunks, nil
}

// SplitAll chunks a document batch, preserving document order.
func (p *Processor) SplitAll(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, doc := range docs {
		split, err := p.Split(doc)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, split...)
	}
	return chunks, nil
}
