package function

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/schema"
)

// ChatResult is the Chat-function response shape of §4.4: provider output
// content blocks forwarded as-is, in order.
type ChatResult struct {
	Content      []model.OutputContent
	FinishReason *model.FinishReason
	Usage        model.Usage
}

// PrepareChatResponse implements §4.4's Chat response assembly: it is a
// pure pass-through of the provider's output content, finish reason, and
// usage — no JSON-bearing block extraction happens for a Chat function.
func PrepareChatResponse(resp *model.ProviderInferenceResponse) *ChatResult {
	return &ChatResult{
		Content:      resp.Output,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
	}
}

// JSONResult is the JSON-function response shape of §4.4.
type JSONResult struct {
	// Raw is the JSON-bearing block's raw text (tool arguments string or
	// text content), preserved even when Parsed is nil.
	Raw *string

	// Parsed is the decoded-and-schema-validated JSON value, or nil if
	// parsing or validation failed. A nil Parsed is never itself an error:
	// §4.4/§7 require this to degrade silently with a warn-level log.
	Parsed any

	// AuxiliaryContent is every output content block other than the
	// JSON-bearing one, in original relative order.
	AuxiliaryContent []model.OutputContent

	// JSONBlockIndex is the original index (within resp.Output) of the
	// block that was removed to become the JSON-bearing block, or nil if
	// no block qualified (an entirely empty or non-Text/ToolCall output).
	JSONBlockIndex *int

	FinishReason *model.FinishReason
	Usage        model.Usage
}

// PrepareJSONResponse implements §4.4/§8-property-5's JSON-function
// response assembly: scan output content blocks in reverse for the last
// Text or ToolCall block, extract its raw string as the JSON-bearing
// content, attempt to parse and validate it, and never error on failure —
// parse/validation failures degrade to Parsed=nil with Raw preserved and a
// warn-level log line, per §7's "prepare_response for JSON functions never
// errors on parse/validate failure".
//
// dynamicSchema, when non-nil, takes precedence over fn.OutputSchema for
// validation (§4.4: "validate against the dynamic schema (if any) else the
// static output schema").
func PrepareJSONResponse(fn *JSONFunction, resp *model.ProviderInferenceResponse, dynamicSchema *schema.Validator, logger *zap.Logger) *JSONResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &JSONResult{
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
	}

	idx, raw, ok := lastJSONBearingBlock(resp.Output)
	if !ok {
		result.AuxiliaryContent = resp.Output
		return result
	}
	result.Raw = &raw
	result.JSONBlockIndex = &idx

	aux := make([]model.OutputContent, 0, len(resp.Output)-1)
	for i, b := range resp.Output {
		if i != idx {
			aux = append(aux, b)
		}
	}
	result.AuxiliaryContent = aux

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("json function output did not parse as JSON", zap.Error(err))
		return result
	}

	validator := dynamicSchema
	if validator == nil {
		validator = fn.OutputSchema
	}
	if err := validator.Validate(parsed); err != nil {
		logger.Warn("json function output failed schema validation", zap.Error(err))
		return result
	}

	result.Parsed = parsed
	return result
}

// lastJSONBearingBlock scans blocks in reverse for the last Text or
// ToolCall block, per §4.4 step 1. For a ToolCall the raw output is the
// tool's arguments string; for Text it is the text itself.
func lastJSONBearingBlock(blocks []model.OutputContent) (index int, raw string, ok bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		switch b := blocks[i].(type) {
		case model.ToolCallOutput:
			return i, b.Arguments, true
		case model.TextOutput:
			return i, b.Text, true
		}
	}
	return 0, "", false
}
