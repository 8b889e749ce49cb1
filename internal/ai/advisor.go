package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// Fixed fallback messages. Advice is decorative: when the model is missing or
// misbehaving the caller still gets a usable string, never an error.
const (
	MsgMissingConfig = "Le conseiller IA n'est pas configuré. Ajoutez une clé API pour activer les recommandations."
	MsgUnavailable   = "Le conseiller IA est momentanément indisponible. Réessayez dans quelques instants."
)

const adviseTimeout = 30 * time.Second

// AdvisorService produces short free-text recommendations for the seller
// dashboard: pricing hints, listing copy, stock alerts phrased for humans.
type AdvisorService interface {
	Advise(ctx context.Context, question string, farmContext string) string
}

type Advisor struct {
	client     *openai.Client
	configured bool
}

// NewAdvisor builds an advisor. An empty apiKey yields a degraded advisor
// that always answers with the missing-configuration message.
func NewAdvisor(apiKey string) *Advisor {
	if apiKey == "" {
		return &Advisor{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Advisor{client: &client, configured: true}
}

// Advise answers a seller question grounded in the farm context. It never
// returns an error; degraded paths fall back to fixed messages.
func (a *Advisor) Advise(ctx context.Context, question string, farmContext string) string {
	if !a.configured {
		return MsgMissingConfig
	}

	prompt := fmt.Sprintf(`Tu es un conseiller agricole pour une plateforme de vente directe ferme-consommateur au Sénégal.
Réponds en français, de façon concise et actionnable, à la question du producteur.
Appuie-toi uniquement sur le contexte de l'exploitation ci-dessous.

Contexte de l'exploitation:
%s

Question: %s`, farmContext, question)

	ctx, cancel := context.WithTimeout(ctx, adviseTimeout)
	defer cancel()

	resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
	})
	if err != nil {
		log.Printf("advisor call failed: %v", err)
		return MsgUnavailable
	}

	content := resp.OutputText()
	if content == "" {
		log.Printf("advisor returned empty output")
		return MsgUnavailable
	}
	return content
}
