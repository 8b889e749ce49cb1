package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// imageAssessment is the structured output contract for photo scoring.
type imageAssessment struct {
	Score int      `json:"score" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Overall listing quality of the photo, 0-100"`
	Tags  []string `json:"tags" jsonschema_description:"Short descriptive tags, e.g. produce type, setting, lighting"`
}

// Scorer rates product photos with a vision-capable model.
type Scorer struct {
	client *openai.Client
}

func NewScorer(apiKey string) *Scorer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Scorer{client: &client}
}

// ScoreImage asks the model to rate the photo at url for marketplace use.
func (s *Scorer) ScoreImage(ctx context.Context, url string) (int, []string, error) {
	prompt := fmt.Sprintf(`You rate product photos for a farm-to-consumer marketplace.
Score the photo at the URL below for listing quality (sharpness, lighting, framing, appeal)
and suggest short descriptive tags.

Photo URL: %s`, url)

	schemaJSON, err := json.Marshal(generateAssessmentSchema())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return 0, nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "image_assessment",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Listing quality assessment of a product photo"),
				},
			},
		},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return 0, nil, fmt.Errorf("empty response content")
	}

	var a imageAssessment
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return 0, nil, fmt.Errorf("failed to parse assessment: %w", err)
	}
	return a.Score, a.Tags, nil
}

func generateAssessmentSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v imageAssessment
	return reflector.Reflect(v)
}
