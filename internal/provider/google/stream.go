package google

import (
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// decoder adapts genai's pull-based GenerateContentResponseIterator into
// provider.Stream. Gemini does not stream tool-call arguments incrementally
// (a FunctionCall part always arrives with its full Args map), so unlike
// the Anthropic/OpenAI decoders this one emits one complete tool-call chunk
// per FunctionCall part rather than a sequence of argument deltas.
type decoder struct {
	iter       *genai.GenerateContentResponseIterator
	rawRequest string
	prefill    bool
	firstText  bool
	peeked     *model.ProviderInferenceResponseChunk
	peekedErr  error
	done       bool
}

func (d *decoder) Close() error { return nil }

// RawRequest implements provider.RawRequestCapable.
func (d *decoder) RawRequest() string { return d.rawRequest }

// peek advances the iterator once so setup-time errors (auth, invalid
// request) surface before the stream is returned to the caller.
func (d *decoder) peek() error {
	d.peeked, d.peekedErr = d.next()
	if d.peekedErr != nil && d.peekedErr != provider.ErrStreamDone {
		return d.peekedErr
	}
	return nil
}

func (d *decoder) Next() (*model.ProviderInferenceResponseChunk, error) {
	if d.peeked != nil || d.peekedErr != nil {
		chunk, err := d.peeked, d.peekedErr
		d.peeked, d.peekedErr = nil, nil
		return chunk, err
	}
	return d.next()
}

func (d *decoder) next() (*model.ProviderInferenceResponseChunk, error) {
	if d.done {
		return nil, provider.ErrStreamDone
	}
	resp, err := d.iter.Next()
	if err == iterator.Done {
		d.done = true
		return nil, provider.ErrStreamDone
	}
	if err != nil {
		d.done = true
		return nil, translateError(err)
	}

	out := &model.ProviderInferenceResponseChunk{}
	if resp.UsageMetadata != nil {
		out.Usage = &model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return out, nil
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			switch v := p.(type) {
			case genai.Text:
				text := string(v)
				if text == "" {
					continue
				}
				if d.firstText && d.prefill {
					text = provider.ReopenJSONPrefillText(text)
				}
				d.firstText = false
				out.Content = append(out.Content, model.ContentBlockChunk{Type: model.ChunkTypeText, Text: text})
			case genai.FunctionCall:
				args, err := json.Marshal(v.Args)
				if err != nil {
					return nil, fmt.Errorf("google stream: encoding tool call arguments: %w", err)
				}
				out.Content = append(out.Content, model.ContentBlockChunk{
					Type:                   model.ChunkTypeToolCall,
					ToolCallID:             v.Name,
					ToolCallName:           v.Name,
					ToolCallArgumentsDelta: string(args),
				})
			}
		}
	}
	if cand.FinishReason != genai.FinishReasonUnspecified {
		reason := provider.NormalizeFinishReason(finishReasonTable, cand.FinishReason.String())
		out.FinishReason = &reason
	}
	return out, nil
}
