package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/pkg/perplexity"
)

// NoFundingSentinel is the token the research model is asked to answer with
// when it finds no funding information.
const NoFundingSentinel = "NO_FUNDING_INFO"

const fundingSystemPrompt = `You research private company funding. Answer in plain prose.
State every funding round you can verify with its amount in US dollars written like "$2 million" or "$1.5 billion".
If you cannot find any funding information for the company, reply with exactly ` + NoFundingSentinel + ` and nothing else.`

// Funding asks Perplexity for the company's funding history.
type Funding struct {
	client perplexity.Client
}

// NewFunding creates a Funding adapter.
func NewFunding(client perplexity.Client) *Funding {
	return &Funding{client: client}
}

func (f *Funding) ID() model.SourceID { return model.SourceFunding }

func (f *Funding) Fetch(ctx context.Context, q Query) (model.SourcePayload, error) {
	temp := 0.1
	maxTokens := 600
	resp, err := f.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: fundingSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("What funding has %s (%s) raised?", q.SearchTerm, q.Domain)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "funding: chat completion")
	}

	answer := strings.TrimSpace(resp.Content())
	if answer == "" {
		return nil, noResults(model.SourceFunding, q)
	}
	if strings.Contains(answer, NoFundingSentinel) {
		return model.FundingSummary{NoFundingInfo: true, Citations: resp.Citations}, nil
	}
	return model.FundingSummary{Summary: answer, Citations: resp.Citations}, nil
}
