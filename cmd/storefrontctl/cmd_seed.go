package main

import (
	"context"
	"errors"
	"fmt"

	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	collectionstore "github.com/dalemusser/storefront/internal/app/store/collections"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type seedProduct struct {
	title, slug, category string
	price                 float64
	inventory             int
	sizes, colors, tags   []string
	featured, summer      bool
}

var demoCategories = []string{"Tops", "Bottoms", "Accessories"}

var demoProducts = []seedProduct{
	{"Classic Tee", "classic-tee", "Tops", 19.99, 40, []string{"S", "M", "L", "XL"}, []string{"White", "Black"}, []string{"cotton", "basics"}, true, true},
	{"Linen Shirt", "linen-shirt", "Tops", 49.00, 12, []string{"M", "L"}, []string{"Sand"}, []string{"linen"}, false, true},
	{"Merino Crew", "merino-crew", "Tops", 89.00, 3, []string{"S", "M", "L"}, []string{"Navy", "Grey"}, []string{"wool"}, false, false},
	{"Chino Short", "chino-short", "Bottoms", 39.50, 25, []string{"30", "32", "34"}, []string{"Khaki"}, []string{"cotton"}, true, true},
	{"Selvedge Jean", "selvedge-jean", "Bottoms", 129.00, 8, []string{"30", "32", "34", "36"}, []string{"Indigo"}, []string{"denim"}, false, false},
	{"Canvas Tote", "canvas-tote", "Accessories", 24.00, 60, nil, []string{"Natural"}, []string{"bags"}, false, true},
	{"Wool Beanie", "wool-beanie", "Accessories", 22.00, 0, nil, []string{"Charcoal"}, []string{"wool", "hats"}, false, false},
}

// storefrontctl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small demo catalog (safe to run twice)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			if err := indexes.EnsureAll(ctx, db); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			n, err := seedCatalog(ctx, db, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d new products\n", n)
			return nil
		})
	},
}

// seedCatalog inserts the demo categories, the "Summer Essentials" collection
// and the demo products, skipping anything already present by slug.
func seedCatalog(ctx context.Context, db *mongo.Database, logger *zap.Logger) (int, error) {
	cats := categorystore.New(db)
	for _, title := range demoCategories {
		if _, err := cats.Create(ctx, models.Category{Title: title}); err != nil && !errors.Is(err, categorystore.ErrDuplicate) {
			return 0, fmt.Errorf("category %q: %w", title, err)
		}
	}

	colls := collectionstore.New(db)
	summer, err := colls.Create(ctx, models.Collection{
		Title:       "Summer Essentials",
		Slug:        "summer-essentials",
		Description: "Light layers for warm days.",
	})
	if errors.Is(err, collectionstore.ErrDuplicate) {
		summer, err = colls.GetBySlug(ctx, "summer-essentials")
	}
	if err != nil {
		return 0, fmt.Errorf("collection: %w", err)
	}

	prods := productstore.New(db)
	created := 0
	for _, sp := range demoProducts {
		p := models.Product{
			Title:       sp.title,
			Slug:        sp.slug,
			Description: "Demo product: " + sp.title + ".",
			Price:       sp.price,
			Category:    sp.category,
			Tags:        sp.tags,
			Sizes:       sp.sizes,
			Colors:      sp.colors,
			Inventory:   sp.inventory,
			Featured:    sp.featured,
		}
		if sp.summer {
			p.Collections = []primitive.ObjectID{summer.ID}
		}
		if _, err := prods.Create(ctx, p); err != nil {
			if errors.Is(err, productstore.ErrDuplicateSlug) {
				logger.Debug("product exists", zap.String("slug", sp.slug))
				continue
			}
			return created, fmt.Errorf("product %q: %w", sp.title, err)
		}
		created++
	}

	ids, err := prods.IDsInCollection(ctx, summer.ID)
	if err != nil {
		return created, err
	}
	if _, err := colls.SetProducts(ctx, summer.ID, ids); err != nil {
		return created, err
	}
	return created, nil
}
