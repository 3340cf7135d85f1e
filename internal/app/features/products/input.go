package products

import (
	"strings"

	"github.com/dalemusser/storefront/internal/app/system/htmlsanitize"
	"github.com/dalemusser/storefront/internal/app/system/ids"
	"github.com/dalemusser/storefront/internal/domain/models"
)

// productInput is the admin create/update body.
type productInput struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Slug         string   `json:"slug" validate:"max=200"`
	Description  string   `json:"description" validate:"max=20000"`
	Price        float64  `json:"price" validate:"gte=0"`
	ComparePrice float64  `json:"compare_price" validate:"gte=0"`
	Images       []string `json:"images" validate:"max=20,dive,required,max=2048"`
	Category     string   `json:"category" validate:"max=100"`
	Tags         []string `json:"tags" validate:"max=50,dive,max=50"`
	Sizes        []string `json:"sizes" validate:"max=30,dive,max=30"`
	Colors       []string `json:"colors" validate:"max=30,dive,max=30"`
	Collections  []string `json:"collections" validate:"max=50"`
	Inventory    int      `json:"inventory" validate:"gte=0"`
	Featured     bool     `json:"featured"`
}

// toModel converts the input. Collection ids are parsed but not checked for
// existence; the caller does that against the database.
func (in productInput) toModel() (models.Product, error) {
	colls, err := ids.Parse(in.Collections)
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{
		Title:        strings.TrimSpace(in.Title),
		Slug:         strings.TrimSpace(in.Slug),
		Description:  htmlsanitize.Sanitize(in.Description),
		Price:        in.Price,
		ComparePrice: in.ComparePrice,
		Images:       in.Images,
		Category:     strings.TrimSpace(in.Category),
		Tags:         in.Tags,
		Sizes:        in.Sizes,
		Colors:       in.Colors,
		Collections:  colls,
		Inventory:    in.Inventory,
		Featured:     in.Featured,
	}, nil
}
