package notify

import (
	"fmt"
	"unicode"

	goslack "github.com/slack-go/slack"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// BuildListingMessage renders a tracked property as Slack Block Kit blocks:
// headline (price/bedrooms/address), fit score if analyzed, summary, and a
// "view listing" button per source — mirroring pkg/slack/message.go's
// section+action block shape.
func BuildListingMessage(property models.TrackedProperty) []goslack.Block {
	p := property.Property
	headline := fmt.Sprintf("*£%d pcm* · %d bed · %s", p.MinPrice, p.Canonical.Bedrooms, p.Canonical.Address)
	if p.PriceVaries() {
		headline = fmt.Sprintf("*£%d–£%d pcm* · %d bed · %s", p.MinPrice, p.MaxPrice, p.Canonical.Bedrooms, p.Canonical.Address)
	}

	var blocks []goslack.Block
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, headline, false, false),
		nil, nil,
	))

	if property.FitScore != nil {
		score := fmt.Sprintf(":star: *Fit score: %d/100*", *property.FitScore)
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, score, false, false),
			nil, nil,
		))
	}

	if property.Quality != nil && property.Quality.Summary != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, property.Quality.Summary, false, false),
			nil, nil,
		))
	}

	if property.CommuteMinutes != nil {
		commute := fmt.Sprintf(":bike: %d min commute", *property.CommuteMinutes)
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, commute, false, false),
		))
	}

	var elements []goslack.BlockElement
	for _, source := range p.Sources {
		url := p.SourceURLs[source]
		if url == "" {
			continue
		}
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(
			goslack.PlainTextType, titleCase(string(source)), false, false))
		btn.URL = url
		elements = append(elements, btn)
	}
	if len(elements) > 0 {
		blocks = append(blocks, goslack.NewActionBlock("", elements...))
	}

	return blocks
}
