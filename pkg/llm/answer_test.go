package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/pkg/llm"
)

func TestStreamForwardsTokensInOrder(t *testing.T) {
	model := &fakeModel{tokens: []string{"La ", "campaña ", "se abre ", "en abril [1]."}}
	streamer := llm.NewStreamerWithModel(model, llm.StreamerConfig{Variant: llm.PromptSources})

	var got []string
	answer, err := streamer.Stream(context.Background(), "¿Cuándo se abre la campaña?",
		[]models.SearchResult{{Chunk: models.Chunk{SourceURL: "https://a/b.html", Text: "abril"}}},
		func(token string) error {
			got = append(got, token)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"La ", "campaña ", "se abre ", "en abril [1]."}, got)
	assert.Equal(t, "La campaña se abre en abril [1].", answer)
}

func TestStreamAbortsOnCallbackError(t *testing.T) {
	model := &fakeModel{tokens: []string{"uno", "dos", "tres"}}
	streamer := llm.NewStreamerWithModel(model, llm.StreamerConfig{})

	sent := 0
	_, err := streamer.Stream(context.Background(), "pregunta", nil, func(token string) error {
		sent++
		if sent == 2 {
			return errors.New("connection gone")
		}
		return nil
	})

	assert.Error(t, err)
	assert.Equal(t, 2, sent)
}

func TestStreamWithoutDocuments(t *testing.T) {
	model := &fakeModel{tokens: []string{"No tengo suficiente información."}}
	streamer := llm.NewStreamerWithModel(model, llm.StreamerConfig{})

	answer, err := streamer.Stream(context.Background(), "pregunta", nil, func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "No tengo suficiente información.", answer)
}
