package engine

import (
	"encoding/xml"
	"fmt"

	"github.com/warden-mcp/warden/internal/intent"
)

// intentContext is the XML shape returned by a successful handshake.
// The agent receives this block verbatim as its working context.
type intentContext struct {
	XMLName            xml.Name    `xml:"intent_context"`
	ID                 string      `xml:"id"`
	Name               string      `xml:"name"`
	Status             string      `xml:"status"`
	OwnedScope         patternList `xml:"owned_scope"`
	Constraints        itemList    `xml:"constraints"`
	AcceptanceCriteria itemList    `xml:"acceptance_criteria"`
}

type patternList struct {
	Patterns []string `xml:"pattern"`
}

type itemList struct {
	Items []string `xml:"item"`
}

// renderIntentContext serializes an intent into the handshake XML block.
func renderIntentContext(in *intent.Intent) (string, error) {
	ctx := intentContext{
		ID:                 in.ID,
		Name:               in.Name,
		Status:             string(in.Status),
		OwnedScope:         patternList{Patterns: in.OwnedScope},
		Constraints:        itemList{Items: in.Constraints},
		AcceptanceCriteria: itemList{Items: in.AcceptanceCriteria},
	}
	out, err := xml.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering intent context: %w", err)
	}
	return string(out), nil
}
