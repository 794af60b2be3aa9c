package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nsvirk/hrassistapi/internal/flow"
)

// DocumentGenerator produces the artifact for a document request
type DocumentGenerator interface {
	Generate(ctx context.Context, req flow.DocumentRequest) (*flow.Attachment, error)
}

// LinkDocumentGenerator mints a download reference under a base URL.
// Rendering the letter itself is left to the document store behind that URL.
type LinkDocumentGenerator struct {
	baseURL string
}

// NewLinkDocumentGenerator creates a generator rooted at baseURL
func NewLinkDocumentGenerator(baseURL string) *LinkDocumentGenerator {
	return &LinkDocumentGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *LinkDocumentGenerator) Generate(ctx context.Context, req flow.DocumentRequest) (*flow.Attachment, error) {
	if req.Kind == "" || req.Language == "" {
		return nil, fmt.Errorf("document request needs a kind and a language")
	}
	ref := uuid.NewString()
	name := fmt.Sprintf("%s_%s.pdf", req.Kind, req.Language)
	return &flow.Attachment{
		Name:        name,
		URL:         fmt.Sprintf("%s/%s/%s", g.baseURL, ref, name),
		ContentType: "application/pdf",
	}, nil
}
