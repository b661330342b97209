package service

import (
	"fmt"
	"strings"

	"github.com/maheshrc27/social-publisher/internal/models"
)

const (
	captionLocation = "Local: Vila Mariana, São Paulo"
	captionCTA      = "Interessado? Chama no WhatsApp!"
	captionTags     = "#casademoveisusados #moveisusados #vilamariana"
)

// BuildCaption returns the post's own caption when it is non-blank, otherwise
// a caption synthesized from the product.
func BuildCaption(post *models.Post, product *models.Product) string {
	if post != nil && post.Caption != nil && strings.TrimSpace(*post.Caption) != "" {
		return *post.Caption
	}

	var b strings.Builder
	if product != nil {
		b.WriteString(product.Name)
		b.WriteString("\n\n")

		if strings.TrimSpace(product.Description) != "" {
			b.WriteString(product.Description)
			b.WriteString("\n\n")
		}

		if product.Price != 0 {
			fmt.Fprintf(&b, "Preço: R$ %.2f\n", product.Price)
		}
	}

	b.WriteString(captionLocation)
	b.WriteString("\n\n")
	b.WriteString(captionCTA)
	b.WriteString("\n\n")
	b.WriteString(captionTags)

	return strings.TrimSpace(b.String())
}

// resolveCaption applies the publication override before the post caption.
func resolveCaption(pub *models.Publication, post *models.Post, product *models.Product) string {
	if pub.CaptionOverride != nil && strings.TrimSpace(*pub.CaptionOverride) != "" {
		return *pub.CaptionOverride
	}
	return BuildCaption(post, product)
}
