package composer

import (
	"fmt"
	"strings"

	"github.com/rcliao/discharge-care/internal/model"
)

// Disclaimer is appended when no passage supported the reply.
const Disclaimer = "\n\n⚠️ **Note:** Response based on general medical knowledge. For personalized advice, please consult your healthcare provider."

// maxWebCitations caps the web results listed by title and link.
const maxWebCitations = 2

// Footer enumerates the source types behind a reply. It is never empty.
func Footer(passages []model.Passage) string {
	kb, web, papers := split(passages)
	var citations []string
	if len(kb) > 0 {
		citations = append(citations, fmt.Sprintf("Medical Knowledge Base (%d entries)", len(kb)))
	}
	for i, w := range web {
		if i == maxWebCitations {
			break
		}
		citations = append(citations, fmt.Sprintf("Web: %s (%s)", w.Title, w.Link))
	}
	if len(papers) > 0 {
		citations = append(citations, fmt.Sprintf("Research Papers (%d papers)", len(papers)))
	}
	if len(citations) == 0 {
		return Disclaimer
	}
	return "\n\n📚 **Sources:** " + strings.Join(citations, "; ")
}

// Citations lists one citation per passage, in order.
func Citations(passages []model.Passage) []model.Citation {
	if len(passages) == 0 {
		return nil
	}
	out := make([]model.Citation, len(passages))
	for i, p := range passages {
		out[i] = p.Citation()
	}
	return out
}

// sourceSummary tells the model which kinds of material it was given.
func sourceSummary(passages []model.Passage) string {
	kb, web, papers := split(passages)
	var parts []string
	if len(kb) > 0 {
		parts = append(parts, fmt.Sprintf("%d medical knowledge base entries", len(kb)))
	}
	if len(web) > 0 {
		parts = append(parts, fmt.Sprintf("%d web sources", len(web)))
	}
	if len(papers) > 0 {
		parts = append(parts, fmt.Sprintf("%d research papers", len(papers)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\nSource Types Used: " + strings.Join(parts, ", ")
}

func split(passages []model.Passage) (kb, web, papers []model.Passage) {
	for _, p := range passages {
		switch p.Origin {
		case model.OriginKnowledgeBase:
			kb = append(kb, p)
		case model.OriginWeb:
			web = append(web, p)
		case model.OriginPaper:
			papers = append(papers, p)
		}
	}
	return kb, web, papers
}
