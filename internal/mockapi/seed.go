package mockapi

import (
	"fmt"
	"strings"
)

// Record counts of the public API.
const (
	DefaultProducts = 194
	DefaultRecipes  = 50
	DefaultTodos    = 254
)

var categories = []string{
	"beauty", "fragrances", "furniture", "groceries",
	"home-decoration", "kitchen-accessories", "laptops", "mens-shirts",
}

var cuisines = []string{"Italian", "Asian", "American", "Mexican", "Mediterranean"}

var difficulties = []string{"Easy", "Medium"}

type record = map[string]any

func seedProducts(n int) []record {
	out := make([]record, 0, n)
	for i := 1; i <= n; i++ {
		cat := categories[(i-1)%len(categories)]
		out = append(out, record{
			"id":                 i,
			"title":              fmt.Sprintf("Product %d", i),
			"description":        fmt.Sprintf("Description of product %d in %s.", i, cat),
			"category":           cat,
			"price":              float64(i%50) + 9.99,
			"discountPercentage": float64(i%20) + 0.5,
			"rating":             float64(i%5) + 0.5,
			"stock":              (i * 7) % 120,
			"brand":              fmt.Sprintf("Brand %d", (i%12)+1),
			"tags":               []string{cat},
			"thumbnail":          fmt.Sprintf("https://cdn.example.com/products/%d/thumbnail.png", i),
		})
	}
	return out
}

func seedRecipes(n int) []record {
	out := make([]record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, record{
			"id":                 i,
			"name":               fmt.Sprintf("Recipe %d", i),
			"ingredients":        []string{"Salt", "Olive oil", fmt.Sprintf("Ingredient %d", i)},
			"instructions":       []string{"Prepare the ingredients.", "Cook until done.", "Serve."},
			"prepTimeMinutes":    10 + i%20,
			"cookTimeMinutes":    15 + i%30,
			"servings":           2 + i%4,
			"difficulty":         difficulties[i%len(difficulties)],
			"cuisine":            cuisines[i%len(cuisines)],
			"caloriesPerServing": 200 + i*5,
			"tags":               []string{strings.ToLower(cuisines[i%len(cuisines)])},
			"image":              fmt.Sprintf("https://cdn.example.com/recipe-images/%d.webp", i),
			"rating":             4 + float64(i%10)/10,
			"reviewCount":        i * 3,
			"mealType":           []string{"Dinner"},
		})
	}
	return out
}

func seedTodos(n int) []record {
	out := make([]record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, record{
			"id":        i,
			"todo":      fmt.Sprintf("Todo item %d", i),
			"completed": i%3 == 0,
			"userId":    (i % 30) + 1,
		})
	}
	return out
}

func categoryList() []record {
	out := make([]record, 0, len(categories))
	for _, slug := range categories {
		out = append(out, record{
			"slug": slug,
			"name": titleCase(slug),
			"url":  "https://dummyjson.com/products/category/" + slug,
		})
	}
	return out
}

// titleCase turns "home-decoration" into "Home Decoration".
func titleCase(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
